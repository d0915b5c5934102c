// Package blockio writes a constructed block result out in the three-section
// output format: the header hex, the coinbase's witness serialization hex,
// then one txid per line (coinbase first) in display order.
package blockio

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/bitcoinecho/blockbuilder/pkg/bitcoin"
)

// Write emits result's block to w: the 160-hex-char header, the coinbase's
// full (witness) serialization as hex, and then the display-order txid of
// the coinbase followed by every selected transaction, one per line.
func Write(w io.Writer, result *bitcoin.Result) error {
	block := result.Block
	if block == nil {
		return fmt.Errorf("result has no block")
	}

	headerHex := hex.EncodeToString(block.Header.Serialize())
	if _, err := fmt.Fprintln(w, headerHex); err != nil {
		return err
	}

	coinbaseHex := hex.EncodeToString(block.Coinbase.SerializeWitness())
	if _, err := fmt.Fprintln(w, coinbaseHex); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, block.Coinbase.Meta.Txid.DisplayString()); err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		if _, err := fmt.Fprintln(w, tx.Meta.Txid.DisplayString()); err != nil {
			return err
		}
	}

	return nil
}
