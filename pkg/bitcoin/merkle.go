package bitcoin

// CalculateMerkleRoot computes the merkle root over hashes: pair adjacent
// hashes and HASH256 each pair; if a level has an odd count, duplicate the
// last hash; repeat until one hash remains. Used for both the coinbase
// builder's wtxid merkle root and the header miner's txid merkle root.
// An empty list is an internal invariant violation and panics.
func CalculateMerkleRoot(hashes []Hash256) Hash256 {
	if len(hashes) == 0 {
		panic("merkle root of an empty hash list")
	}
	if len(hashes) == 1 {
		return hashes[0]
	}

	level := make([]Hash256, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		var next []Hash256
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		level = next
	}

	return level[0]
}

// hashPair computes HASH256(left ‖ right).
func hashPair(left, right Hash256) Hash256 {
	combined := make([]byte, 0, 64)
	combined = append(combined, left.Bytes()...)
	combined = append(combined, right.Bytes()...)
	return HASH256(combined)
}
