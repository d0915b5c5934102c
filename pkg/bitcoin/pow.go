package bitcoin

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// targetHex is the fixed 256-bit big-endian proof-of-work target.
const targetHex = "0000ffff00000000000000000000000000000000000000000000000000000000"

// FixedTarget is the parsed form of targetHex.
var FixedTarget = mustParseTarget(targetHex)

func mustParseTarget(s string) *big.Int {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return new(big.Int).SetBytes(b)
}

// BlockHeader is the 80-byte block header.
type BlockHeader struct {
	Version       uint32
	PrevBlockHash Hash256
	MerkleRoot    Hash256
	Time          uint32
	Bits          uint32
	Nonce         uint32
}

// Serialize encodes the header in the fixed 80-byte wire format.
func (h BlockHeader) Serialize() []byte {
	buf := make([]byte, 80)
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	copy(buf[4:36], h.PrevBlockHash.Bytes())
	copy(buf[36:68], h.MerkleRoot.Bytes())
	binary.LittleEndian.PutUint32(buf[68:72], h.Time)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// Hash returns HASH256 of the serialized header.
func (h BlockHeader) Hash() Hash256 {
	return HASH256(h.Serialize())
}

// meetsTarget reports whether h's hash, byte-reversed to big-endian, is
// strictly less than the fixed target.
func meetsTarget(h BlockHeader) bool {
	hash := h.Hash().Reversed()
	hashInt := new(big.Int).SetBytes(hash.Bytes())
	return hashInt.Cmp(FixedTarget) < 0
}

// MineHeader searches for a nonce (and, on nonce-space exhaustion, an
// incremented timestamp) such that the header's HASH256, reversed to
// big-endian, is below FixedTarget. Per §5, the search is parallelized
// across GOMAXPROCS workers, each striding over a disjoint residue class of
// the 32-bit nonce space; the first success cancels the rest.
func MineHeader(ctx context.Context, base BlockHeader) (BlockHeader, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	header := base
	for {
		found, result, err := mineTimestamp(ctx, header, workers)
		if err != nil {
			return BlockHeader{}, err
		}
		if found {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return BlockHeader{}, err
		}
		// Nonce space exhausted for this timestamp: per §4.10, increment
		// the timestamp and restart the nonce search.
		header.Time++
	}
}

func mineTimestamp(ctx context.Context, header BlockHeader, workers int) (bool, BlockHeader, error) {
	g, gctx := errgroup.WithContext(ctx)

	results := make([]uint32, workers)
	found := make([]bool, workers)

	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for nonce := uint64(w); nonce <= 0xffffffff; nonce += uint64(workers) {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				candidate := header
				candidate.Nonce = uint32(nonce)
				if meetsTarget(candidate) {
					results[w] = uint32(nonce)
					found[w] = true
					return errStopSearch
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && err != errStopSearch {
		return false, BlockHeader{}, err
	}

	best := uint32(0)
	have := false
	for w := 0; w < workers; w++ {
		if found[w] && (!have || results[w] < best) {
			best = results[w]
			have = true
		}
	}
	if !have {
		return false, BlockHeader{}, nil
	}
	result := header
	result.Nonce = best
	return true, result, nil
}

// CompactBits returns the compact ("nBits") encoding of FixedTarget, for
// the header's bits field.
func CompactBits() uint32 {
	targetBytes := FixedTarget.Bytes()
	if len(targetBytes) == 0 {
		return 0
	}

	exponent := len(targetBytes)
	var mantissa uint32
	switch {
	case exponent >= 3:
		mantissa = uint32(targetBytes[0])<<16 | uint32(targetBytes[1])<<8 | uint32(targetBytes[2])
	case exponent == 2:
		mantissa = uint32(targetBytes[0])<<16 | uint32(targetBytes[1])<<8
	default:
		mantissa = uint32(targetBytes[0]) << 16
	}

	if mantissa&0x800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return uint32(exponent)<<24 | (mantissa & 0x00ffffff)
}

// errStopSearch is a sentinel used to cancel sibling workers once one
// finds a qualifying nonce; it is never returned to the caller of
// MineHeader.
var errStopSearch = errStopSearchError{}

type errStopSearchError struct{}

func (errStopSearchError) Error() string { return "nonce found" }
