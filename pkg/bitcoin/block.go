package bitcoin

import "fmt"

// Block is a single constructed block: a mined header, its coinbase, and
// the selected transactions in block body order. Unlike the multi-block
// chain this engine's teacher modeled, a Block here is a one-shot
// computation result, never linked to a persisted chain.
type Block struct {
	Header       BlockHeader
	Coinbase     *Transaction
	Transactions []*Transaction // selected, non-coinbase, in block order
}

// NewBlock assembles a Block from its mined header, coinbase, and selected
// transaction sequence.
func NewBlock(header BlockHeader, coinbase *Transaction, transactions []*Transaction) *Block {
	return &Block{
		Header:       header,
		Coinbase:     coinbase,
		Transactions: transactions,
	}
}

// Hash returns the block's header hash.
func (b *Block) Hash() Hash256 {
	return b.Header.Hash()
}

// TransactionCount returns the number of transactions in the block,
// including the coinbase.
func (b *Block) TransactionCount() int {
	return len(b.Transactions) + 1
}

// HasCoinbase reports whether the block has a coinbase transaction.
func (b *Block) HasCoinbase() bool {
	return b.Coinbase != nil && b.Coinbase.IsCoinbase()
}

// CoinbaseTransaction returns the block's coinbase, if present.
func (b *Block) CoinbaseTransaction() *Transaction {
	if b.HasCoinbase() {
		return b.Coinbase
	}
	return nil
}

// Weight returns the total block weight: the coinbase plus every selected
// transaction.
func (b *Block) Weight() uint64 {
	var total uint64
	if b.Coinbase != nil {
		total += b.Coinbase.Weight()
	}
	for _, tx := range b.Transactions {
		total += tx.Weight()
	}
	return total
}

// Validate checks the invariants a constructed block must satisfy: a
// coinbase first, no other coinbase transactions, and the selection weight
// budget honored for the non-coinbase body.
func (b *Block) Validate() error {
	if !b.HasCoinbase() {
		return fmt.Errorf("block has no coinbase")
	}

	for i, tx := range b.Transactions {
		if tx.IsCoinbase() {
			return fmt.Errorf("transaction %d is coinbase (only the first slot may be)", i)
		}
	}

	var bodyWeight uint64
	for _, tx := range b.Transactions {
		bodyWeight += tx.Meta.Weight
	}
	if bodyWeight > SelectionWeightBudget {
		return fmt.Errorf("selected body weight %d exceeds budget %d", bodyWeight, SelectionWeightBudget)
	}

	return nil
}

// MaxBlockWeight is the BIP-141 consensus block weight ceiling.
const MaxBlockWeight = 4_000_000
