package bitcoin

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// InputType tags which verification path an input takes. Anything other
// than P2PKH or P2WPKH is Other and causes the owning transaction to be
// rejected (see verify.go).
type InputType int

const (
	InputUnknown InputType = iota
	InputP2PKH
	InputP2WPKH
	InputOther
)

func (t InputType) String() string {
	switch t {
	case InputP2PKH:
		return "P2PKH"
	case InputP2WPKH:
		return "P2WPKH"
	case InputOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// TxOutput is a transaction output: an amount and the script that locks it.
type TxOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// TxInput is a transaction input. PrevOutput is the UTXO being spent, as
// resolved by the decoder; the core never performs its own UTXO lookup.
type TxInput struct {
	PrevTxid   Hash256
	PrevIndex  uint32
	ScriptSig  []byte
	Sequence   uint32
	Witness    [][]byte
	PrevOutput TxOutput
	InputType  InputType
}

// TxMeta holds the fields derived by the sanity validator and package
// scorer. It is populated in place as a transaction moves through the
// pipeline; it is never supplied by the decoder.
type TxMeta struct {
	Txid          Hash256
	Wtxid         Hash256
	Weight        uint64
	Fee           uint64
	ParentTxids   []Hash256 // sorted ascending by display order
	PackageFee    uint64
	PackageWeight uint64
}

// Transaction is a candidate transaction moving through the validation and
// selection pipeline.
type Transaction struct {
	Version  int32
	LockTime uint32
	Inputs   []TxInput
	Outputs  []TxOutput

	// FilenameID is the identity claimed by the decoder (its source
	// filename or key), parsed from display order and stored in internal
	// byte order like every Hash256. The sanity validator requires this to
	// equal the computed txid.
	FilenameID Hash256

	Meta TxMeta
}

// IsCoinbase reports whether tx has the single null-prevout input that
// marks a coinbase transaction.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 &&
		tx.Inputs[0].PrevTxid.IsZero() &&
		tx.Inputs[0].PrevIndex == 0xffffffff
}

// HasWitness reports whether any input carries witness data.
func (tx *Transaction) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// TotalInput sums prev_output.value across all inputs.
func (tx *Transaction) TotalInput() uint64 {
	var total uint64
	for _, in := range tx.Inputs {
		total += in.PrevOutput.Value
	}
	return total
}

// TotalOutput sums value across all outputs.
func (tx *Transaction) TotalOutput() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}

func writeInputLegacy(buf *bytes.Buffer, in TxInput) {
	prevBE := in.PrevTxid.Reversed()
	buf.Write(prevBE.Bytes())
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], in.PrevIndex)
	buf.Write(idx[:])
	buf.Write(EncodeVarInt(uint64(len(in.ScriptSig))))
	buf.Write(in.ScriptSig)
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], in.Sequence)
	buf.Write(seq[:])
}

func writeOutput(buf *bytes.Buffer, out TxOutput) {
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], out.Value)
	buf.Write(val[:])
	buf.Write(EncodeVarInt(uint64(len(out.ScriptPubKey))))
	buf.Write(out.ScriptPubKey)
}

// SerializeLegacy encodes tx in the non-witness (txid) wire form per
// version_le(4) ‖ varint(|inputs|) ‖ inputs* ‖ varint(|outputs|) ‖ outputs* ‖ locktime_le(4).
func (tx *Transaction) SerializeLegacy() []byte {
	var buf bytes.Buffer

	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], uint32(tx.Version))
	buf.Write(ver[:])

	buf.Write(EncodeVarInt(uint64(len(tx.Inputs))))
	for _, in := range tx.Inputs {
		writeInputLegacy(&buf, in)
	}

	buf.Write(EncodeVarInt(uint64(len(tx.Outputs))))
	for _, out := range tx.Outputs {
		writeOutput(&buf, out)
	}

	var lt [4]byte
	binary.LittleEndian.PutUint32(lt[:], tx.LockTime)
	buf.Write(lt[:])

	return buf.Bytes()
}

// SerializeWitness encodes tx in the full (wtxid) wire form: the legacy form
// with the marker/flag inserted after the version (before the input count) and per-input witness
// stacks appended after the outputs, when any input carries witness data.
// If no input has witness data, this is identical to SerializeLegacy.
func (tx *Transaction) SerializeWitness() []byte {
	hasWitness := tx.HasWitness()
	if !hasWitness {
		return tx.SerializeLegacy()
	}

	var buf bytes.Buffer

	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], uint32(tx.Version))
	buf.Write(ver[:])

	buf.WriteByte(0x00) // marker
	buf.WriteByte(0x01) // flag

	buf.Write(EncodeVarInt(uint64(len(tx.Inputs))))
	for _, in := range tx.Inputs {
		writeInputLegacy(&buf, in)
	}

	buf.Write(EncodeVarInt(uint64(len(tx.Outputs))))
	for _, out := range tx.Outputs {
		writeOutput(&buf, out)
	}

	for _, in := range tx.Inputs {
		buf.Write(EncodeVarInt(uint64(len(in.Witness))))
		for _, item := range in.Witness {
			buf.Write(EncodeVarInt(uint64(len(item))))
			buf.Write(item)
		}
	}

	var lt [4]byte
	binary.LittleEndian.PutUint32(lt[:], tx.LockTime)
	buf.Write(lt[:])

	return buf.Bytes()
}

// ComputeTxid derives the txid from the legacy serialization.
func (tx *Transaction) ComputeTxid() Hash256 {
	return HASH256(tx.SerializeLegacy())
}

// ComputeWtxid derives the wtxid from the witness serialization.
func (tx *Transaction) ComputeWtxid() Hash256 {
	return HASH256(tx.SerializeWitness())
}

// Weight computes the BIP-141 weight: non-witness bytes count 4x, witness
// bytes (marker, flag, and the per-input witness stacks) count 1x.
func (tx *Transaction) Weight() uint64 {
	base := uint64(len(tx.SerializeLegacy()))
	weight := base * 4

	if tx.HasWitness() {
		weight += 2 // marker + flag, 1x each
		for _, in := range tx.Inputs {
			weight += uint64(VarIntSize(uint64(len(in.Witness))))
			for _, item := range in.Witness {
				weight += uint64(VarIntSize(uint64(len(item))))
				weight += uint64(len(item))
			}
		}
	}

	return weight
}

// DeserializeTransaction parses a transaction from wire bytes, detecting the
// segwit marker/flag and decoding witness stacks when present. Any valid
// varint encoding is accepted on input.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("transaction too short")
	}

	tx := &Transaction{}
	offset := 0

	tx.Version = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	hasWitness := false
	if len(data) >= offset+2 && data[offset] == 0x00 && data[offset+1] == 0x01 {
		hasWitness = true
		offset += 2
	}

	inputCount, n, err := DecodeVarInt(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("decode input count: %w", err)
	}
	offset += n

	tx.Inputs = make([]TxInput, inputCount)
	for i := range tx.Inputs {
		if len(data[offset:]) < 32 {
			return nil, fmt.Errorf("insufficient data for input %d prevout hash", i)
		}
		var prevBE Hash256
		copy(prevBE[:], data[offset:offset+32])
		tx.Inputs[i].PrevTxid = prevBE.Reversed()
		offset += 32

		if len(data[offset:]) < 4 {
			return nil, fmt.Errorf("insufficient data for input %d prevout index", i)
		}
		tx.Inputs[i].PrevIndex = binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4

		scriptLen, n, err := DecodeVarInt(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("decode input %d script length: %w", i, err)
		}
		offset += n
		if uint64(len(data[offset:])) < scriptLen {
			return nil, fmt.Errorf("insufficient data for input %d script", i)
		}
		tx.Inputs[i].ScriptSig = append([]byte(nil), data[offset:offset+int(scriptLen)]...)
		offset += int(scriptLen)

		if len(data[offset:]) < 4 {
			return nil, fmt.Errorf("insufficient data for input %d sequence", i)
		}
		tx.Inputs[i].Sequence = binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
	}

	outputCount, n, err := DecodeVarInt(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("decode output count: %w", err)
	}
	offset += n

	tx.Outputs = make([]TxOutput, outputCount)
	for i := range tx.Outputs {
		if len(data[offset:]) < 8 {
			return nil, fmt.Errorf("insufficient data for output %d value", i)
		}
		tx.Outputs[i].Value = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8

		scriptLen, n, err := DecodeVarInt(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("decode output %d script length: %w", i, err)
		}
		offset += n
		if uint64(len(data[offset:])) < scriptLen {
			return nil, fmt.Errorf("insufficient data for output %d script", i)
		}
		tx.Outputs[i].ScriptPubKey = append([]byte(nil), data[offset:offset+int(scriptLen)]...)
		offset += int(scriptLen)
	}

	if hasWitness {
		for i := range tx.Inputs {
			itemCount, n, err := DecodeVarInt(data[offset:])
			if err != nil {
				return nil, fmt.Errorf("decode input %d witness count: %w", i, err)
			}
			offset += n
			witness := make([][]byte, itemCount)
			for j := range witness {
				itemLen, n, err := DecodeVarInt(data[offset:])
				if err != nil {
					return nil, fmt.Errorf("decode input %d witness item %d length: %w", i, j, err)
				}
				offset += n
				if uint64(len(data[offset:])) < itemLen {
					return nil, fmt.Errorf("insufficient data for input %d witness item %d", i, j)
				}
				witness[j] = append([]byte(nil), data[offset:offset+int(itemLen)]...)
				offset += int(itemLen)
			}
			tx.Inputs[i].Witness = witness
		}
	}

	if len(data[offset:]) < 4 {
		return nil, fmt.Errorf("insufficient data for locktime")
	}
	tx.LockTime = binary.LittleEndian.Uint32(data[offset : offset+4])
	offset += 4

	return tx, nil
}

// MaxMoney is the total satoshi supply, the ceiling on any single value.
const MaxMoney = 21_000_000 * 100_000_000
