package bitcoin

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// buildSpendableCandidate builds a standalone, sanity-and-script-valid P2PKH
// candidate transaction spending an arbitrary external prevout.
func buildSpendableCandidate(t *testing.T, priv *btcec.PrivateKey, prevoutSeed string, value, spend uint64) *Transaction {
	t.Helper()

	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pubKeyHash := HASH160(pubKeyBytes)
	scriptPubKey := append([]byte{byte(OP_DUP), byte(OP_HASH160), Hash160Size}, pubKeyHash.Bytes()...)
	scriptPubKey = append(scriptPubKey, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))

	tx := &Transaction{
		Version: 1,
		Inputs: []TxInput{{
			PrevTxid:  HASH256([]byte(prevoutSeed)),
			PrevIndex: 0,
			Sequence:  0xffffffff,
			PrevOutput: TxOutput{
				Value:        value,
				ScriptPubKey: scriptPubKey,
			},
		}},
		Outputs: []TxOutput{{Value: spend, ScriptPubKey: []byte{byte(OP_RETURN)}}},
	}

	sigHash := LegacySigHash(tx, 0, scriptPubKey)
	sig := ecdsa.Sign(priv, sigHash.Bytes())
	der := append(sig.Serialize(), byte(SighashAll))
	tx.Inputs[0].ScriptSig = append([]byte{byte(len(der))}, der...)
	tx.Inputs[0].ScriptSig = append(tx.Inputs[0].ScriptSig, byte(len(pubKeyBytes)))
	tx.Inputs[0].ScriptSig = append(tx.Inputs[0].ScriptSig, pubKeyBytes...)

	tx.FilenameID = tx.ComputeTxid()
	return tx
}

func TestBuildBlock_SelectsValidCandidate(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	candidate := buildSpendableCandidate(t, priv, "prevout-1", 100_000, 90_000)

	opts := BuildOptions{
		Height:        1,
		PrevBlockHash: ZeroHash,
		PayoutScript:  []byte{byte(OP_DUP)},
		Time:          1700000000,
		HeaderVersion: 0x20000000,
	}

	result, err := BuildBlock(context.Background(), []*Transaction{candidate}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Block.Transactions) != 1 {
		t.Fatalf("expected 1 selected transaction, got %d", len(result.Block.Transactions))
	}
	if result.Block.Transactions[0].Meta.Txid != candidate.Meta.Txid {
		t.Errorf("expected the candidate to be selected")
	}
	if len(result.Rejections) != 0 {
		t.Errorf("expected no rejections, got %v", result.Rejections)
	}
	if !meetsTarget(result.Block.Header) {
		t.Errorf("expected mined header to meet the fixed target")
	}
	if err := result.Block.Validate(); err != nil {
		t.Errorf("expected assembled block to validate: %v", err)
	}
}

func TestBuildBlock_RejectsBadSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	candidate := buildSpendableCandidate(t, priv, "prevout-2", 100_000, 90_000)
	candidate.Inputs[0].ScriptSig[5] ^= 0xff
	// FilenameID must track the transaction's actual bytes, as the decoder
	// would report it, so the corruption is caught by script verification
	// rather than by the earlier identity check.
	candidate.FilenameID = candidate.ComputeTxid()

	opts := BuildOptions{
		Height:        1,
		PrevBlockHash: ZeroHash,
		PayoutScript:  []byte{byte(OP_DUP)},
		Time:          1700000000,
		HeaderVersion: 0x20000000,
	}

	result, err := BuildBlock(context.Background(), []*Transaction{candidate}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Block.Transactions) != 0 {
		t.Errorf("expected no transactions selected, got %d", len(result.Block.Transactions))
	}
	rej, ok := result.Rejections[candidate.Meta.Txid]
	if !ok || rej.Reason != RejectScriptFailure {
		t.Errorf("expected RejectScriptFailure for the corrupted candidate, got %v (present=%v)", rej, ok)
	}
}

func TestBuildBlock_RejectsDependentOfRejectedParent(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	parent := buildSpendableCandidate(t, priv, "bad-parent", 100_000, 90_000)
	parent.Inputs[0].ScriptSig[5] ^= 0xff // corrupt parent's signature
	parent.FilenameID = parent.ComputeTxid()

	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pubKeyHash := HASH160(pubKeyBytes)
	childScriptPubKey := append([]byte{byte(OP_DUP), byte(OP_HASH160), Hash160Size}, pubKeyHash.Bytes()...)
	childScriptPubKey = append(childScriptPubKey, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))

	child := &Transaction{
		Version: 1,
		Inputs: []TxInput{{
			PrevTxid:  parent.ComputeTxid(),
			PrevIndex: 0,
			Sequence:  0xffffffff,
			PrevOutput: TxOutput{
				Value:        90_000,
				ScriptPubKey: childScriptPubKey,
			},
		}},
		Outputs: []TxOutput{{Value: 80_000, ScriptPubKey: []byte{byte(OP_RETURN)}}},
	}
	sigHash := LegacySigHash(child, 0, childScriptPubKey)
	sig := ecdsa.Sign(priv, sigHash.Bytes())
	der := append(sig.Serialize(), byte(SighashAll))
	child.Inputs[0].ScriptSig = append([]byte{byte(len(der))}, der...)
	child.Inputs[0].ScriptSig = append(child.Inputs[0].ScriptSig, byte(len(pubKeyBytes)))
	child.Inputs[0].ScriptSig = append(child.Inputs[0].ScriptSig, pubKeyBytes...)
	child.FilenameID = child.ComputeTxid()

	opts := BuildOptions{
		Height:        1,
		PrevBlockHash: ZeroHash,
		PayoutScript:  []byte{byte(OP_DUP)},
		Time:          1700000000,
		HeaderVersion: 0x20000000,
	}

	result, err := BuildBlock(context.Background(), []*Transaction{parent, child}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Block.Transactions) != 0 {
		t.Errorf("expected neither transaction selected, got %d", len(result.Block.Transactions))
	}
	if rej, ok := result.Rejections[child.Meta.Txid]; !ok || rej.Reason != RejectAncestorRejected {
		t.Errorf("expected child to be rejected as a dependent of a rejected parent, got %v (present=%v)", rej, ok)
	}
}

func TestBuildBlock_RejectsDependentOfSanityRejectedParent(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	// Zero fee (spend == value): fails SanityCheck's feerate floor, never
	// reaches script verification, never enters the index.
	parent := buildSpendableCandidate(t, priv, "zero-fee-parent", 100_000, 100_000)
	parentTxid := parent.ComputeTxid()

	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pubKeyHash := HASH160(pubKeyBytes)
	childScriptPubKey := append([]byte{byte(OP_DUP), byte(OP_HASH160), Hash160Size}, pubKeyHash.Bytes()...)
	childScriptPubKey = append(childScriptPubKey, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))

	child := &Transaction{
		Version: 1,
		Inputs: []TxInput{{
			PrevTxid:  parentTxid,
			PrevIndex: 0,
			Sequence:  0xffffffff,
			PrevOutput: TxOutput{
				Value:        100_000,
				ScriptPubKey: childScriptPubKey,
			},
		}},
		Outputs: []TxOutput{{Value: 90_000, ScriptPubKey: []byte{byte(OP_RETURN)}}},
	}
	sigHash := LegacySigHash(child, 0, childScriptPubKey)
	sig := ecdsa.Sign(priv, sigHash.Bytes())
	der := append(sig.Serialize(), byte(SighashAll))
	child.Inputs[0].ScriptSig = append([]byte{byte(len(der))}, der...)
	child.Inputs[0].ScriptSig = append(child.Inputs[0].ScriptSig, byte(len(pubKeyBytes)))
	child.Inputs[0].ScriptSig = append(child.Inputs[0].ScriptSig, pubKeyBytes...)
	child.FilenameID = child.ComputeTxid()

	opts := BuildOptions{
		Height:        1,
		PrevBlockHash: ZeroHash,
		PayoutScript:  []byte{byte(OP_DUP)},
		Time:          1700000000,
		HeaderVersion: 0x20000000,
	}

	result, err := BuildBlock(context.Background(), []*Transaction{parent, child}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Block.Transactions) != 0 {
		t.Errorf("expected neither transaction selected, got %d", len(result.Block.Transactions))
	}
	if rej, ok := result.Rejections[parentTxid]; !ok || rej.Reason != RejectFeerateTooLow {
		t.Errorf("expected parent rejected for feerate, got %v (present=%v)", rej, ok)
	}
	if rej, ok := result.Rejections[child.Meta.Txid]; !ok || rej.Reason != RejectAncestorRejected {
		t.Errorf("expected child to be pruned as a dependent of its sanity-rejected (never-indexed) parent, got %v (present=%v)", rej, ok)
	}
}

func TestBuildBlock_EmptyCandidateSetStillProducesCoinbaseOnlyBlock(t *testing.T) {
	opts := BuildOptions{
		Height:        7,
		PrevBlockHash: ZeroHash,
		PayoutScript:  []byte{byte(OP_DUP)},
		Time:          1700000000,
		HeaderVersion: 0x20000000,
	}

	result, err := BuildBlock(context.Background(), nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Block.Transactions) != 0 {
		t.Errorf("expected no selected transactions")
	}
	if !result.Block.HasCoinbase() {
		t.Errorf("expected a coinbase even with no candidates")
	}
}
