package bitcoin

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BuildOptions parameterizes a single block construction run. None of these
// values are derivable from the candidate set; they come from the caller
// (decoded configuration, wall clock, chain tip).
type BuildOptions struct {
	Height        uint32
	PrevBlockHash Hash256
	PayoutScript  []byte
	Time          uint32
	ExtraNonce    []byte
	HeaderVersion uint32
}

// Result is the product of one BuildBlock run: the mined block and the
// rejections accumulated along the way, keyed by each candidate's computed
// txid so a caller can report why each candidate was dropped.
type Result struct {
	Block      *Block
	Rejections map[Hash256]Rejection
}

// BuildBlock runs the full pipeline over candidates: sanity validation,
// script/signature verification, dependency resolution, package scoring,
// block selection, coinbase construction, and header mining. candidates
// must already carry FilenameID and resolved PrevOutput data per input, as
// the decoder contract requires.
func BuildBlock(ctx context.Context, candidates []*Transaction, opts BuildOptions) (*Result, error) {
	index := NewMempoolIndex()
	// full holds every candidate, sanity-rejected or not, keyed by its
	// actual computed txid: the resolver needs these edges reachable even
	// for a parent that never makes it into the index, since spenders
	// reference a prevout's real txid regardless of whether that parent
	// survives sanity checking.
	full := make(map[Hash256]*Transaction, len(candidates))
	rejections := make(map[Hash256]Rejection)
	duplicates := make(map[Hash256]Rejection)

	for _, tx := range candidates {
		txid := tx.ComputeTxid()
		full[txid] = tx

		rej := SanityCheck(tx)
		if rej.Reason != RejectNone {
			rejections[txid] = rej
			continue
		}
		if !index.Add(tx) {
			// The txid itself is still valid (an earlier candidate holds
			// it); track separately so this entry never poisons the
			// resolver's rejection seed.
			duplicates[txid] = Rejection{Reason: RejectIdentityMismatch, Detail: "duplicate txid"}
			continue
		}
	}

	byTxid := index.Map()
	if err := verifyAll(ctx, byTxid, rejections); err != nil {
		return nil, err
	}

	// Per §4.6, R0 is every transaction that failed sanity or script
	// verification, exactly what rejections holds at this point (sanity
	// failures added above, script failures just folded in by verifyAll).
	// Parents are resolved over full, not byTxid, so a child spending a
	// sanity-rejected (and so never-indexed) parent is still pruned.
	closure := ResolveRejections(full, rejections)
	for txid, rej := range closure {
		rejections[txid] = rej
		delete(byTxid, txid)
	}
	for txid, rej := range duplicates {
		rejections[txid] = rej
	}

	ScorePackages(byTxid)
	selected := SelectBlock(byTxid)

	coinbase := BuildCoinbase(opts.Height, selected, opts.PayoutScript, opts.ExtraNonce)

	txidHashes := make([]Hash256, 0, len(selected)+1)
	txidHashes = append(txidHashes, coinbase.Meta.Txid)
	for _, tx := range selected {
		txidHashes = append(txidHashes, tx.Meta.Txid)
	}
	merkleRoot := CalculateMerkleRoot(txidHashes)

	baseHeader := BlockHeader{
		Version:       opts.HeaderVersion,
		PrevBlockHash: opts.PrevBlockHash,
		MerkleRoot:    merkleRoot,
		Time:          opts.Time,
		Bits:          CompactBits(),
		Nonce:         0,
	}

	header, err := MineHeader(ctx, baseHeader)
	if err != nil {
		return nil, err
	}

	block := NewBlock(header, coinbase, selected)
	if err := block.Validate(); err != nil {
		return nil, err
	}

	return &Result{Block: block, Rejections: rejections}, nil
}

// verifyAll runs script/signature verification for every candidate in
// byTxid concurrently, one goroutine per transaction, and folds any
// rejections into dst. Per §5, each goroutine owns its own verification
// call and mutates no shared state besides dst, which is guarded by a
// mutex; the reduction is order-independent since rejections are keyed by
// txid rather than appended to a slice.
func verifyAll(ctx context.Context, byTxid map[Hash256]*Transaction, dst map[Hash256]Rejection) error {
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for txid, tx := range byTxid {
		txid, tx := txid, tx
		g.Go(func() error {
			if rej := VerifyTransaction(tx); rej.Reason != RejectNone {
				mu.Lock()
				dst[txid] = rej
				mu.Unlock()
			}
			return nil
		})
	}

	return g.Wait()
}
