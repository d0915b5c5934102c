package bitcoin

import "sort"

// Parents computes parents(T): the set of in-mempool txids that T spends
// from, given byTxid maps every candidate txid to its transaction. The
// result is sorted ascending by display order for deterministic iteration
// downstream.
func Parents(tx *Transaction, byTxid map[Hash256]*Transaction) []Hash256 {
	seen := make(map[Hash256]bool)
	var parents []Hash256
	for _, in := range tx.Inputs {
		if _, ok := byTxid[in.PrevTxid]; ok && !seen[in.PrevTxid] {
			seen[in.PrevTxid] = true
			parents = append(parents, in.PrevTxid)
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].Less(parents[j]) })
	return parents
}

// ResolveRejections computes R, the least fixed point of
// R <- R0 ∪ { T : parents(T) ∩ R != ∅ }, starting from r0 (transactions
// that failed sanity or script verification). byTxid must contain every
// candidate transaction, valid or not, keyed by txid.
func ResolveRejections(byTxid map[Hash256]*Transaction, r0 map[Hash256]Rejection) map[Hash256]Rejection {
	rejected := make(map[Hash256]Rejection, len(r0))
	for txid, rej := range r0 {
		rejected[txid] = rej
	}

	for {
		changed := false
		for txid, tx := range byTxid {
			if _, already := rejected[txid]; already {
				continue
			}
			for _, parent := range Parents(tx, byTxid) {
				if _, parentRejected := rejected[parent]; parentRejected {
					rejected[txid] = Rejection{Reason: RejectAncestorRejected, Detail: parent.DisplayString()}
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}

	return rejected
}
