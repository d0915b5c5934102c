package blockio

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/bitcoinecho/blockbuilder/pkg/bitcoin"
)

func sampleResult() *bitcoin.Result {
	coinbase := bitcoin.BuildCoinbase(1, nil, []byte{0x76, 0xa9}, []byte{0xde, 0xad})

	body := &bitcoin.Transaction{
		Version: 1,
		Inputs: []bitcoin.TxInput{{
			PrevTxid:  bitcoin.HASH256([]byte("prev")),
			PrevIndex: 0,
			ScriptSig: []byte{0x01},
			Sequence:  0xffffffff,
		}},
		Outputs: []bitcoin.TxOutput{{Value: 1000, ScriptPubKey: []byte{byte(bitcoin.OP_RETURN)}}},
	}
	body.FilenameID = body.ComputeTxid()
	body.Meta.Txid = body.FilenameID
	body.Meta.Wtxid = body.ComputeWtxid()

	block := bitcoin.NewBlock(bitcoin.BlockHeader{
		Version:       1,
		PrevBlockHash: bitcoin.ZeroHash,
		Time:          1700000000,
		Bits:          bitcoin.CompactBits(),
		Nonce:         0,
	}, coinbase, []*bitcoin.Transaction{body})

	return &bitcoin.Result{Block: block}
}

func TestWrite_ThreeSections(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	if err := Write(&buf, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (header, coinbase, coinbase txid, 1 body txid), got %d: %v", len(lines), lines)
	}

	wantHeader := hex.EncodeToString(result.Block.Header.Serialize())
	if lines[0] != wantHeader {
		t.Errorf("expected header hex %s, got %s", wantHeader, lines[0])
	}
	if len(lines[0]) != 160 {
		t.Errorf("expected 160 hex chars for an 80-byte header, got %d", len(lines[0]))
	}

	wantCoinbase := hex.EncodeToString(result.Block.Coinbase.SerializeWitness())
	if lines[1] != wantCoinbase {
		t.Errorf("expected coinbase hex to match SerializeWitness output")
	}

	if lines[2] != result.Block.Coinbase.Meta.Txid.DisplayString() {
		t.Errorf("expected third line to be the coinbase txid")
	}
	if lines[3] != result.Block.Transactions[0].Meta.Txid.DisplayString() {
		t.Errorf("expected fourth line to be the body transaction's txid")
	}
}

func TestWrite_CoinbaseTxidPrecedesBodyTxids(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	if err := Write(&buf, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	coinbaseTxid := result.Block.Coinbase.Meta.Txid.DisplayString()
	if lines[2] != coinbaseTxid {
		t.Errorf("expected coinbase txid to be listed before any body transaction")
	}
}

func TestWrite_EmptyBlockStillWritesCoinbaseOnly(t *testing.T) {
	coinbase := bitcoin.BuildCoinbase(5, nil, []byte{0x76}, nil)
	block := bitcoin.NewBlock(bitcoin.BlockHeader{
		Version:       1,
		PrevBlockHash: bitcoin.ZeroHash,
		Time:          1700000001,
		Bits:          bitcoin.CompactBits(),
	}, coinbase, nil)
	result := &bitcoin.Result{Block: block}

	var buf bytes.Buffer
	if err := Write(&buf, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, coinbase hex, and coinbase txid only, got %d lines", len(lines))
	}
}

func TestWrite_NilBlockReturnsError(t *testing.T) {
	result := &bitcoin.Result{Block: nil}
	var buf bytes.Buffer
	if err := Write(&buf, result); err == nil {
		t.Errorf("expected an error when the result has no block")
	}
}
