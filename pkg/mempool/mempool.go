// Package mempool decodes candidate transaction records from a directory
// of JSON files, one per transaction, named by the transaction's claimed
// txid in display order. It owns decoding only: consensus validation
// happens in the core, never here.
package mempool

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bitcoinecho/blockbuilder/pkg/bitcoin"
)

// prevout is the decoder-resolved UTXO data attached to an input record.
type prevout struct {
	Value        uint64 `json:"value"`
	ScriptPubKey string `json:"scriptpubkey"`
}

type inputRecord struct {
	Txid     string   `json:"txid"`
	Vout     uint32   `json:"vout"`
	ScriptSig string  `json:"scriptsig"`
	Witness  []string `json:"witness"`
	Sequence uint32   `json:"sequence"`
	Prevout  prevout  `json:"prevout"`
}

type outputRecord struct {
	Value        uint64 `json:"value"`
	ScriptPubKey string `json:"scriptpubkey"`
}

type record struct {
	Version  int32          `json:"version"`
	Locktime uint32         `json:"locktime"`
	Vin      []inputRecord  `json:"vin"`
	Vout     []outputRecord `json:"vout"`
}

// LoadDir reads one JSON file per candidate transaction from dir. The
// filename stem (without extension) is taken as the transaction's claimed
// identity in big-endian display order; it is attached to the resulting
// Transaction as FilenameID so the sanity validator's identity check can
// run. Malformed JSON, bad hex, or structurally incomplete records are
// rejected here and never reach the core, per the decoder contract.
func LoadDir(dir string) ([]*bitcoin.Transaction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mempool directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	txs := make([]*bitcoin.Transaction, 0, len(names))
	for _, name := range names {
		tx, err := loadRecord(filepath.Join(dir, name), strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func loadRecord(path, filenameID string) (*bitcoin.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if len(rec.Vin) == 0 {
		return nil, fmt.Errorf("no inputs")
	}
	if len(rec.Vout) == 0 {
		return nil, fmt.Errorf("no outputs")
	}

	id, err := bitcoin.NewHash256FromDisplayString(filenameID)
	if err != nil {
		return nil, fmt.Errorf("invalid filename identity: %w", err)
	}

	tx := &bitcoin.Transaction{
		Version:    rec.Version,
		LockTime:   rec.Locktime,
		FilenameID: id,
	}

	tx.Inputs = make([]bitcoin.TxInput, len(rec.Vin))
	for i, in := range rec.Vin {
		prevTxid, err := bitcoin.NewHash256FromDisplayString(in.Txid)
		if err != nil {
			return nil, fmt.Errorf("input %d: invalid txid: %w", i, err)
		}
		scriptSig, err := hex.DecodeString(in.ScriptSig)
		if err != nil {
			return nil, fmt.Errorf("input %d: invalid scriptsig hex: %w", i, err)
		}
		prevScript, err := hex.DecodeString(in.Prevout.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("input %d: invalid prevout scriptpubkey hex: %w", i, err)
		}
		witness := make([][]byte, len(in.Witness))
		for j, w := range in.Witness {
			item, err := hex.DecodeString(w)
			if err != nil {
				return nil, fmt.Errorf("input %d: invalid witness item %d hex: %w", i, j, err)
			}
			witness[j] = item
		}

		tx.Inputs[i] = bitcoin.TxInput{
			PrevTxid:  prevTxid,
			PrevIndex: in.Vout,
			ScriptSig: scriptSig,
			Sequence:  in.Sequence,
			Witness:   witness,
			PrevOutput: bitcoin.TxOutput{
				Value:        in.Prevout.Value,
				ScriptPubKey: prevScript,
			},
		}
	}

	tx.Outputs = make([]bitcoin.TxOutput, len(rec.Vout))
	for i, out := range rec.Vout {
		script, err := hex.DecodeString(out.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("output %d: invalid scriptpubkey hex: %w", i, err)
		}
		tx.Outputs[i] = bitcoin.TxOutput{
			Value:        out.Value,
			ScriptPubKey: script,
		}
	}

	return tx, nil
}
