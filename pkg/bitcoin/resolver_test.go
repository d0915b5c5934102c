package bitcoin

import "testing"

func chainTx(t *testing.T, spends Hash256, seed byte) *Transaction {
	t.Helper()
	tx := &Transaction{
		Version: 1,
		Inputs: []TxInput{{
			PrevTxid:  spends,
			PrevIndex: 0,
			Sequence:  0xffffffff,
		}},
		Outputs: []TxOutput{{Value: 1000, ScriptPubKey: []byte{byte(seed)}}},
	}
	tx.Meta.Txid = tx.ComputeTxid()
	return tx
}

func TestParents_OnlyInMempoolPrevoutsCount(t *testing.T) {
	parent := chainTx(t, HASH256([]byte("external")), 0x01)
	child := chainTx(t, parent.Meta.Txid, 0x02)

	byTxid := map[Hash256]*Transaction{
		parent.Meta.Txid: parent,
		child.Meta.Txid:  child,
	}

	parents := Parents(child, byTxid)
	if len(parents) != 1 || parents[0] != parent.Meta.Txid {
		t.Errorf("expected child's sole parent to be the in-mempool parent, got %v", parents)
	}

	if parents := Parents(parent, byTxid); len(parents) != 0 {
		t.Errorf("expected parent (spending an external prevout) to have no in-mempool parents, got %v", parents)
	}
}

func TestResolveRejections_PropagatesThroughChain(t *testing.T) {
	grandparent := chainTx(t, HASH256([]byte("external")), 0x01)
	parent := chainTx(t, grandparent.Meta.Txid, 0x02)
	child := chainTx(t, parent.Meta.Txid, 0x03)
	unrelated := chainTx(t, HASH256([]byte("other external")), 0x04)

	byTxid := map[Hash256]*Transaction{
		grandparent.Meta.Txid: grandparent,
		parent.Meta.Txid:      parent,
		child.Meta.Txid:       child,
		unrelated.Meta.Txid:   unrelated,
	}

	r0 := map[Hash256]Rejection{
		grandparent.Meta.Txid: {Reason: RejectScriptFailure},
	}

	result := ResolveRejections(byTxid, r0)

	if _, ok := result[grandparent.Meta.Txid]; !ok {
		t.Errorf("expected original rejection to survive")
	}
	if rej, ok := result[parent.Meta.Txid]; !ok || rej.Reason != RejectAncestorRejected {
		t.Errorf("expected parent to be rejected as an ancestor failure, got %v", result[parent.Meta.Txid])
	}
	if rej, ok := result[child.Meta.Txid]; !ok || rej.Reason != RejectAncestorRejected {
		t.Errorf("expected child to be transitively rejected, got %v", result[child.Meta.Txid])
	}
	if _, ok := result[unrelated.Meta.Txid]; ok {
		t.Errorf("expected unrelated transaction to remain unrejected")
	}
}

func TestResolveRejections_EmptyR0ProducesEmptyResult(t *testing.T) {
	tx := chainTx(t, HASH256([]byte("external")), 0x01)
	byTxid := map[Hash256]*Transaction{tx.Meta.Txid: tx}

	result := ResolveRejections(byTxid, map[Hash256]Rejection{})
	if len(result) != 0 {
		t.Errorf("expected empty result, got %v", result)
	}
}
