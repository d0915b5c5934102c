package bitcoin

import (
	"context"
	"math/big"
	"testing"
)

func TestBlockHeader_SerializeLayout(t *testing.T) {
	prev := HASH256([]byte("prev"))
	merkle := HASH256([]byte("merkle"))

	h := BlockHeader{
		Version:       0x20000000,
		PrevBlockHash: prev,
		MerkleRoot:    merkle,
		Time:          1700000000,
		Bits:          CompactBits(),
		Nonce:         12345,
	}

	data := h.Serialize()
	if len(data) != 80 {
		t.Fatalf("expected 80-byte header, got %d", len(data))
	}

	// prev/merkle are written in internal (unreversed) byte order on the wire.
	if string(data[4:36]) != string(prev.Bytes()) {
		t.Errorf("prev block hash not written in internal byte order")
	}
	if string(data[36:68]) != string(merkle.Bytes()) {
		t.Errorf("merkle root not written in internal byte order")
	}
}

func TestBlockHeader_HashDeterministic(t *testing.T) {
	h := BlockHeader{
		Version:       1,
		PrevBlockHash: ZeroHash,
		MerkleRoot:    ZeroHash,
		Time:          1,
		Bits:          CompactBits(),
		Nonce:         0,
	}

	a := h.Hash()
	b := h.Hash()
	if a != b {
		t.Errorf("header hash is not deterministic")
	}
}

func TestMeetsTarget_DistinguishesNonces(t *testing.T) {
	base := BlockHeader{
		Version:       1,
		PrevBlockHash: ZeroHash,
		MerkleRoot:    ZeroHash,
		Time:          1700000000,
		Bits:          CompactBits(),
	}

	foundAny := false
	for nonce := uint32(0); nonce < 200000; nonce++ {
		h := base
		h.Nonce = nonce
		if meetsTarget(h) {
			foundAny = true
			break
		}
	}
	if !foundAny {
		t.Skip("no qualifying nonce found in search window; not conclusive on its own")
	}
}

func TestMineHeader_FindsQualifyingNonce(t *testing.T) {
	base := BlockHeader{
		Version:       1,
		PrevBlockHash: ZeroHash,
		MerkleRoot:    HASH256([]byte("mine me")),
		Time:          1700000000,
		Bits:          CompactBits(),
	}

	result, err := MineHeader(context.Background(), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meetsTarget(result) {
		t.Errorf("mined header does not meet target")
	}
	if result.Nonce == 0 && result.Time == base.Time {
		t.Logf("nonce 0 happened to satisfy the target; unusual but not invalid")
	}
}

func TestMineHeader_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := BlockHeader{
		Version:       1,
		PrevBlockHash: ZeroHash,
		MerkleRoot:    ZeroHash,
		Time:          1700000000,
		Bits:          CompactBits(),
	}

	// A cancelled context should not spin forever; mineTimestamp should
	// return promptly with found=false on an exhausted/cancelled search.
	found, _, err := mineTimestamp(ctx, base, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Logf("found a qualifying nonce before cancellation was observed; acceptable race")
	}
}

func TestCompactBits_EncodesFixedTarget(t *testing.T) {
	bits := CompactBits()

	exponent := bits >> 24
	mantissa := bits & 0x00ffffff

	reconstructed := new(big.Int).SetUint64(uint64(mantissa))
	if exponent > 3 {
		reconstructed.Lsh(reconstructed, uint(8*(exponent-3)))
	}

	if reconstructed.Cmp(FixedTarget) != 0 {
		t.Errorf("CompactBits() does not round-trip to FixedTarget: got %s, want %s",
			reconstructed.String(), FixedTarget.String())
	}
}

func TestFixedTarget_Is32Bytes(t *testing.T) {
	if len(targetHex) != 64 {
		t.Fatalf("targetHex must be exactly 64 hex characters (32 bytes), got %d", len(targetHex))
	}
}
