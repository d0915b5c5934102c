package bitcoin

// MempoolIndex maps txid to the candidate transaction it identifies. It
// replaces the teacher's UTXO-by-outpoint lookup with a transaction-by-txid
// lookup: this engine never tracks UTXO spend state itself, since the
// decoder already resolves each input's prevout value and scriptPubKey
// before a transaction reaches the core.
type MempoolIndex struct {
	byTxid map[Hash256]*Transaction
}

// NewMempoolIndex creates an empty index.
func NewMempoolIndex() *MempoolIndex {
	return &MempoolIndex{byTxid: make(map[Hash256]*Transaction)}
}

// Add indexes tx by its computed txid. Returns false without modifying the
// index if a transaction with the same txid is already present.
func (idx *MempoolIndex) Add(tx *Transaction) bool {
	if _, exists := idx.byTxid[tx.Meta.Txid]; exists {
		return false
	}
	idx.byTxid[tx.Meta.Txid] = tx
	return true
}

// Find looks up a transaction by txid.
func (idx *MempoolIndex) Find(txid Hash256) (*Transaction, bool) {
	tx, ok := idx.byTxid[txid]
	return tx, ok
}

// Size returns the number of indexed transactions.
func (idx *MempoolIndex) Size() int {
	return len(idx.byTxid)
}

// Map returns the underlying txid -> transaction map, for handoff to the
// resolver, scorer, and selector.
func (idx *MempoolIndex) Map() map[Hash256]*Transaction {
	return idx.byTxid
}
