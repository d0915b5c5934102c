package bitcoin

import "sort"

// SelectionWeightBudget is the weight budget for block body selection,
// reserving 8,000 WU for the header and coinbase.
const SelectionWeightBudget = 3_992_000

// SelectBlock runs §4.8 over the surviving (already-scored) transactions:
// descending package-feerate sort with ascending-txid tiebreak, a
// parent-lift pass to fixpoint, then weight-budget truncation. It returns
// the selected transactions in block body order (excluding coinbase).
func SelectBlock(byTxid map[Hash256]*Transaction) []*Transaction {
	sequence := make([]*Transaction, 0, len(byTxid))
	for _, tx := range byTxid {
		sequence = append(sequence, tx)
	}

	sort.SliceStable(sequence, func(i, j int) bool {
		fi, fj := PackageFeerate(sequence[i]), PackageFeerate(sequence[j])
		if fi != fj {
			return fi > fj
		}
		return sequence[i].Meta.Txid.Less(sequence[j].Meta.Txid)
	})

	sequence = liftParents(sequence)

	var selected []*Transaction
	selectedTxids := make(map[Hash256]bool, len(sequence))
	var runningWeight uint64
	for _, tx := range sequence {
		if runningWeight+tx.Meta.Weight > SelectionWeightBudget {
			continue
		}
		if !allSelected(tx.Meta.ParentTxids, selectedTxids) {
			// A parent that precedes tx (per liftParents) was itself
			// skipped for overflowing the budget; per §8 invariant 3, tx
			// cannot be selected without it.
			continue
		}
		runningWeight += tx.Meta.Weight
		selected = append(selected, tx)
		selectedTxids[tx.Meta.Txid] = true
	}

	return selected
}

// allSelected reports whether every txid in parents is present in selected.
func allSelected(parents []Hash256, selected map[Hash256]bool) bool {
	for _, parent := range parents {
		if !selected[parent] {
			return false
		}
	}
	return true
}

// liftParents repeatedly scans sequence, moving any parent found after one
// of its children to immediately before that child, until a full pass makes
// no moves. Terminates because the parent relation is a DAG.
func liftParents(sequence []*Transaction) []*Transaction {
	position := make(map[Hash256]int, len(sequence))
	for i, tx := range sequence {
		position[tx.Meta.Txid] = i
	}

	for {
		moved := false
		for i, tx := range sequence {
			for _, parentTxid := range tx.Meta.ParentTxids {
				parentPos := position[parentTxid]
				if parentPos > i {
					parent := sequence[parentPos]
					copy(sequence[i+1:parentPos+1], sequence[i:parentPos])
					sequence[i] = parent
					for k := i; k <= parentPos; k++ {
						position[sequence[k].Meta.Txid] = k
					}
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}

	return sequence
}
