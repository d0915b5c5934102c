package bitcoin

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // consensus requires RIPEMD160, not offered by crypto/*
)

// Hash256 represents a 256-bit hash (32 bytes), stored in natural
// (internal, non-display-reversed) byte order.
type Hash256 [32]byte

// ZeroHash represents an all-zero hash.
var ZeroHash = Hash256{}

// NewHash256FromBytes creates a Hash256 from a byte slice.
func NewHash256FromBytes(b []byte) (Hash256, error) {
	if len(b) != 32 {
		return ZeroHash, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(b))
	}
	var hash Hash256
	copy(hash[:], b)
	return hash, nil
}

// NewHash256FromString creates a Hash256 from a hex string holding the raw
// (non-reversed) bytes.
func NewHash256FromString(s string) (Hash256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash, fmt.Errorf("invalid hex string: %w", err)
	}
	return NewHash256FromBytes(b)
}

// NewHash256FromDisplayString parses a big-endian display-order hex string
// (the form used in block explorers and filenames) into internal byte order.
func NewHash256FromDisplayString(s string) (Hash256, error) {
	h, err := NewHash256FromString(s)
	if err != nil {
		return ZeroHash, err
	}
	return h.Reversed(), nil
}

// String returns the hash in internal byte order as hex.
func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// DisplayString returns the hash in big-endian display order, matching the
// convention used for txids and block hashes in explorers and filenames.
func (h Hash256) DisplayString() string {
	return h.Reversed().String()
}

// Bytes returns the hash as a byte slice.
func (h Hash256) Bytes() []byte {
	return h[:]
}

// Reversed returns a copy of the hash with byte order reversed.
func (h Hash256) Reversed() Hash256 {
	var out Hash256
	for i := 0; i < 32; i++ {
		out[i] = h[31-i]
	}
	return out
}

// IsZero returns true if the hash is all zeros.
func (h Hash256) IsZero() bool {
	return h == ZeroHash
}

// Less reports whether h sorts before o under the display-order ordering
// used for deterministic tie-breaking (block selector, resolver).
func (h Hash256) Less(o Hash256) bool {
	a, b := h.DisplayString(), o.DisplayString()
	return a < b
}

// HASH256 computes SHA256(SHA256(data)), Bitcoin's double hash.
func HASH256(data []byte) Hash256 {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return Hash256(second)
}

// Hash160 represents a 160-bit hash (20 bytes) used for addresses.
type Hash160 [20]byte

// ZeroHash160 represents an all-zero hash160.
var ZeroHash160 = Hash160{}

// NewHash160FromBytes creates a Hash160 from a byte slice.
func NewHash160FromBytes(b []byte) (Hash160, error) {
	if len(b) != 20 {
		return ZeroHash160, fmt.Errorf("invalid hash160 length: expected 20 bytes, got %d", len(b))
	}
	var hash Hash160
	copy(hash[:], b)
	return hash, nil
}

// String returns the hash160 as a hex string.
func (h Hash160) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the hash160 as a byte slice.
func (h Hash160) Bytes() []byte {
	return h[:]
}

// HASH160 computes RIPEMD160(SHA256(data)).
func HASH160(data []byte) Hash160 {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:]) //nolint:errcheck // ripemd160.digest.Write never errors
	var out Hash160
	copy(out[:], r.Sum(nil))
	return out
}

// EncodeVarInt encodes an integer as a Bitcoin variable-length integer using
// the minimal encoding (required on output per the wire format).
func EncodeVarInt(value uint64) []byte {
	switch {
	case value < 0xfd:
		return []byte{byte(value)}
	case value <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(value))
		return buf
	case value <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(value))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], value)
		return buf
	}
}

// DecodeVarInt decodes a Bitcoin variable-length integer. Any valid encoding
// is accepted on input, per spec (only the encoder is required to be
// minimal).
func DecodeVarInt(data []byte) (value uint64, bytesRead int, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty data")
	}

	switch first := data[0]; {
	case first < 0xfd:
		return uint64(first), 1, nil
	case first == 0xfd:
		if len(data) < 3 {
			return 0, 0, fmt.Errorf("insufficient data for fd varint")
		}
		return uint64(binary.LittleEndian.Uint16(data[1:3])), 3, nil
	case first == 0xfe:
		if len(data) < 5 {
			return 0, 0, fmt.Errorf("insufficient data for fe varint")
		}
		return uint64(binary.LittleEndian.Uint32(data[1:5])), 5, nil
	default:
		if len(data) < 9 {
			return 0, 0, fmt.Errorf("insufficient data for ff varint")
		}
		return binary.LittleEndian.Uint64(data[1:9]), 9, nil
	}
}

// VarIntSize returns the number of bytes the minimal varint encoding of
// value occupies, without allocating.
func VarIntSize(value uint64) int {
	switch {
	case value < 0xfd:
		return 1
	case value <= 0xffff:
		return 3
	case value <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
