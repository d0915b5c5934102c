package bitcoin

import (
	"bytes"
	"encoding/binary"
)

// SighashAll is the only signature-hash type this engine accepts.
const SighashAll uint32 = 0x00000001

// LegacySigHash builds the SIGHASH_ALL message hash for inputIdx: the
// transaction serialized in legacy form with every script_sig blanked
// except inputIdx's, which is replaced by scriptCode, followed by the
// little-endian sighash type, then HASH256'd.
func LegacySigHash(tx *Transaction, inputIdx int, scriptCode []byte) Hash256 {
	var buf bytes.Buffer

	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], uint32(tx.Version))
	buf.Write(ver[:])

	buf.Write(EncodeVarInt(uint64(len(tx.Inputs))))
	for i, in := range tx.Inputs {
		script := []byte{}
		if i == inputIdx {
			script = scriptCode
		}
		blanked := TxInput{
			PrevTxid:  in.PrevTxid,
			PrevIndex: in.PrevIndex,
			ScriptSig: script,
			Sequence:  in.Sequence,
		}
		writeInputLegacy(&buf, blanked)
	}

	buf.Write(EncodeVarInt(uint64(len(tx.Outputs))))
	for _, out := range tx.Outputs {
		writeOutput(&buf, out)
	}

	var lt [4]byte
	binary.LittleEndian.PutUint32(lt[:], tx.LockTime)
	buf.Write(lt[:])

	var sh [4]byte
	binary.LittleEndian.PutUint32(sh[:], SighashAll)
	buf.Write(sh[:])

	return HASH256(buf.Bytes())
}

// p2wpkhScriptCode builds the implicit P2PKH-shaped scriptCode BIP-143
// substitutes for a P2WPKH input: 0x1976a914 <hash160(pubkey)> 0x88ac.
func p2wpkhScriptCode(pubkeyHash Hash160) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x19) // push 25 bytes
	buf.WriteByte(byte(OP_DUP))
	buf.WriteByte(byte(OP_HASH160))
	buf.WriteByte(0x14) // push 20 bytes
	buf.Write(pubkeyHash.Bytes())
	buf.WriteByte(byte(OP_EQUALVERIFY))
	buf.WriteByte(byte(OP_CHECKSIG))
	return buf.Bytes()
}

// BIP143SigHash builds the BIP-143 segwit sighash message for inputIdx,
// given the pubkey hash that identifies the P2WPKH output being spent.
// Only SIGHASH_ALL is supported.
func BIP143SigHash(tx *Transaction, inputIdx int, pubkeyHash Hash160) Hash256 {
	var prevouts bytes.Buffer
	var sequences bytes.Buffer
	for _, in := range tx.Inputs {
		prevBE := in.PrevTxid.Reversed()
		prevouts.Write(prevBE.Bytes())
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], in.PrevIndex)
		prevouts.Write(idx[:])

		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], in.Sequence)
		sequences.Write(seq[:])
	}
	hashPrevouts := HASH256(prevouts.Bytes())
	hashSequence := HASH256(sequences.Bytes())

	var outputs bytes.Buffer
	for _, out := range tx.Outputs {
		writeOutput(&outputs, out)
	}
	hashOutputs := HASH256(outputs.Bytes())

	in := tx.Inputs[inputIdx]

	var preimage bytes.Buffer
	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], uint32(tx.Version))
	preimage.Write(ver[:])

	preimage.Write(hashPrevouts.Bytes())
	preimage.Write(hashSequence.Bytes())

	prevBE := in.PrevTxid.Reversed()
	preimage.Write(prevBE.Bytes())
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], in.PrevIndex)
	preimage.Write(idx[:])

	preimage.Write(p2wpkhScriptCode(pubkeyHash))

	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], in.PrevOutput.Value)
	preimage.Write(val[:])

	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], in.Sequence)
	preimage.Write(seq[:])

	preimage.Write(hashOutputs.Bytes())

	var lt [4]byte
	binary.LittleEndian.PutUint32(lt[:], tx.LockTime)
	preimage.Write(lt[:])

	var sh [4]byte
	binary.LittleEndian.PutUint32(sh[:], SighashAll)
	preimage.Write(sh[:])

	return HASH256(preimage.Bytes())
}
