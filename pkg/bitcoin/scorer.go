package bitcoin

import "sort"

// feerateScale multiplies package_fee before the integer division so that
// the floored sat/WU feerate still distinguishes transactions with close
// feerates under integer arithmetic.
const feerateScale = 1_000_000

// ScorePackages computes package_fee and package_weight for every surviving
// transaction in byTxid, via a single pass over a topological order (parents
// before children) rather than unmemoized recursion, per the design note on
// avoiding stack blowup on deep chains. A parent reachable along multiple
// ancestor paths is counted once per path, by construction: this is an
// accepted priority heuristic, not an exact CPFP computation (spec §4.7,
// §9).
func ScorePackages(byTxid map[Hash256]*Transaction) {
	order := topologicalOrder(byTxid)

	for _, txid := range order {
		tx := byTxid[txid]
		tx.Meta.ParentTxids = Parents(tx, byTxid)

		packageFee := tx.Meta.Fee
		packageWeight := tx.Meta.Weight
		for _, parentTxid := range tx.Meta.ParentTxids {
			parent := byTxid[parentTxid]
			packageFee += parent.Meta.PackageFee
			packageWeight += parent.Meta.PackageWeight
		}
		tx.Meta.PackageFee = packageFee
		tx.Meta.PackageWeight = packageWeight
	}
}

// PackageFeerate returns the floored, scaled package feerate used for total
// ordering in the block selector.
func PackageFeerate(tx *Transaction) uint64 {
	if tx.Meta.PackageWeight == 0 {
		return 0
	}
	return (tx.Meta.PackageFee * feerateScale) / tx.Meta.PackageWeight
}

// topologicalOrder returns every txid in byTxid ordered so that every
// transaction's in-mempool parents precede it. Ties among transactions with
// no ordering constraint are broken by ascending txid for determinism.
func topologicalOrder(byTxid map[Hash256]*Transaction) []Hash256 {
	txids := make([]Hash256, 0, len(byTxid))
	for txid := range byTxid {
		txids = append(txids, txid)
	}
	sort.Slice(txids, func(i, j int) bool { return txids[i].Less(txids[j]) })

	visited := make(map[Hash256]bool, len(txids))
	order := make([]Hash256, 0, len(txids))

	var visit func(txid Hash256)
	visit = func(txid Hash256) {
		if visited[txid] {
			return
		}
		visited[txid] = true
		tx := byTxid[txid]
		for _, parent := range Parents(tx, byTxid) {
			visit(parent)
		}
		order = append(order, txid)
	}

	for _, txid := range txids {
		visit(txid)
	}

	return order
}
