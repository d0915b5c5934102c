package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Script represents a Bitcoin script as raw bytes.
type Script []byte

// ScriptOpcode represents a script operation code.
type ScriptOpcode byte

const (
	OP_0         ScriptOpcode = 0x00
	OP_FALSE     ScriptOpcode = OP_0
	OP_PUSHDATA1 ScriptOpcode = 0x4c
	OP_PUSHDATA2 ScriptOpcode = 0x4d
	OP_PUSHDATA4 ScriptOpcode = 0x4e
	OP_1NEGATE   ScriptOpcode = 0x4f
	OP_RESERVED  ScriptOpcode = 0x50
	OP_1         ScriptOpcode = 0x51
	OP_TRUE      ScriptOpcode = OP_1
	OP_2         ScriptOpcode = 0x52
	OP_3         ScriptOpcode = 0x53
	OP_4         ScriptOpcode = 0x54
	OP_5         ScriptOpcode = 0x55
	OP_6         ScriptOpcode = 0x56
	OP_7         ScriptOpcode = 0x57
	OP_8         ScriptOpcode = 0x58
	OP_9         ScriptOpcode = 0x59
	OP_10        ScriptOpcode = 0x5a
	OP_11        ScriptOpcode = 0x5b
	OP_12        ScriptOpcode = 0x5c
	OP_13        ScriptOpcode = 0x5d
	OP_14        ScriptOpcode = 0x5e
	OP_15        ScriptOpcode = 0x5f
	OP_16        ScriptOpcode = 0x60

	OP_NOP      ScriptOpcode = 0x61
	OP_VER      ScriptOpcode = 0x62
	OP_IF       ScriptOpcode = 0x63
	OP_NOTIF    ScriptOpcode = 0x64
	OP_VERIF    ScriptOpcode = 0x65
	OP_VERNOTIF ScriptOpcode = 0x66
	OP_ELSE     ScriptOpcode = 0x67
	OP_ENDIF    ScriptOpcode = 0x68
	OP_VERIFY   ScriptOpcode = 0x69
	OP_RETURN   ScriptOpcode = 0x6a

	OP_TOALTSTACK   ScriptOpcode = 0x6b
	OP_FROMALTSTACK ScriptOpcode = 0x6c
	OP_2DROP        ScriptOpcode = 0x6d
	OP_2DUP         ScriptOpcode = 0x6e
	OP_3DUP         ScriptOpcode = 0x6f
	OP_2OVER        ScriptOpcode = 0x70
	OP_2ROT         ScriptOpcode = 0x71
	OP_2SWAP        ScriptOpcode = 0x72
	OP_IFDUP        ScriptOpcode = 0x73
	OP_DEPTH        ScriptOpcode = 0x74
	OP_DROP         ScriptOpcode = 0x75
	OP_DUP          ScriptOpcode = 0x76
	OP_NIP          ScriptOpcode = 0x77
	OP_OVER         ScriptOpcode = 0x78
	OP_PICK         ScriptOpcode = 0x79
	OP_ROLL         ScriptOpcode = 0x7a
	OP_ROT          ScriptOpcode = 0x7b
	OP_SWAP         ScriptOpcode = 0x7c
	OP_TUCK         ScriptOpcode = 0x7d

	OP_SIZE ScriptOpcode = 0x82

	OP_EQUAL       ScriptOpcode = 0x87
	OP_EQUALVERIFY ScriptOpcode = 0x88

	OP_1ADD               ScriptOpcode = 0x8b
	OP_1SUB               ScriptOpcode = 0x8c
	OP_NEGATE             ScriptOpcode = 0x8f
	OP_ABS                ScriptOpcode = 0x90
	OP_NOT                ScriptOpcode = 0x91
	OP_0NOTEQUAL          ScriptOpcode = 0x92
	OP_ADD                ScriptOpcode = 0x93
	OP_SUB                ScriptOpcode = 0x94
	OP_BOOLAND            ScriptOpcode = 0x9a
	OP_BOOLOR             ScriptOpcode = 0x9b
	OP_NUMEQUAL           ScriptOpcode = 0x9c
	OP_NUMEQUALVERIFY     ScriptOpcode = 0x9d
	OP_NUMNOTEQUAL        ScriptOpcode = 0x9e
	OP_LESSTHAN           ScriptOpcode = 0x9f
	OP_GREATERTHAN        ScriptOpcode = 0xa0
	OP_LESSTHANOREQUAL    ScriptOpcode = 0xa1
	OP_GREATERTHANOREQUAL ScriptOpcode = 0xa2
	OP_MIN                ScriptOpcode = 0xa3
	OP_MAX                ScriptOpcode = 0xa4
	OP_WITHIN             ScriptOpcode = 0xa5

	OP_RIPEMD160           ScriptOpcode = 0xa6
	OP_SHA1                ScriptOpcode = 0xa7
	OP_SHA256              ScriptOpcode = 0xa8
	OP_HASH160             ScriptOpcode = 0xa9
	OP_HASH256             ScriptOpcode = 0xaa
	OP_CODESEPARATOR       ScriptOpcode = 0xab
	OP_CHECKSIG            ScriptOpcode = 0xac
	OP_CHECKSIGVERIFY      ScriptOpcode = 0xad
	OP_CHECKMULTISIG       ScriptOpcode = 0xae
	OP_CHECKMULTISIGVERIFY ScriptOpcode = 0xaf

	OP_NOP1                ScriptOpcode = 0xb0
	OP_CHECKLOCKTIMEVERIFY ScriptOpcode = 0xb1 // BIP65
	OP_CHECKSEQUENCEVERIFY ScriptOpcode = 0xb2 // BIP112
	OP_NOP4                ScriptOpcode = 0xb3
	OP_NOP5                ScriptOpcode = 0xb4
	OP_NOP6                ScriptOpcode = 0xb5
	OP_NOP7                ScriptOpcode = 0xb6
	OP_NOP8                ScriptOpcode = 0xb7
	OP_NOP9                ScriptOpcode = 0xb8
	OP_NOP10               ScriptOpcode = 0xb9

	OP_INVALIDOPCODE ScriptOpcode = 0xff
)

// ScriptType classifies a scriptPubKey against the templates this engine
// knows about. OP_RETURN scripts classify as NullData and anything that is
// not P2PKH or P2WPKH as Unknown. Only P2PKH and P2WPKH are supported for
// spending; an input of any other type causes rejection.
type ScriptType int

const (
	ScriptTypeUnknown ScriptType = iota
	ScriptTypeP2PKH
	ScriptTypeP2WPKH
	ScriptTypeNullData
)

const (
	P2PKHScriptSize  = 25 // OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
	P2WPKHScriptSize = 22 // OP_0 <20-byte hash>
	Hash160Size      = 20
)

// AnalyzeScript classifies a scriptPubKey against the supported templates.
func (s Script) AnalyzeScript() ScriptType {
	switch {
	case len(s) == P2PKHScriptSize &&
		s[0] == byte(OP_DUP) &&
		s[1] == byte(OP_HASH160) &&
		s[2] == Hash160Size &&
		s[23] == byte(OP_EQUALVERIFY) &&
		s[24] == byte(OP_CHECKSIG):
		return ScriptTypeP2PKH
	case len(s) == P2WPKHScriptSize &&
		s[0] == byte(OP_0) &&
		s[1] == Hash160Size:
		return ScriptTypeP2WPKH
	case len(s) > 0 && s[0] == byte(OP_RETURN):
		return ScriptTypeNullData
	default:
		return ScriptTypeUnknown
	}
}

// ScriptEngine executes Bitcoin scripts over a bounded opcode set.
type ScriptEngine struct {
	stack    [][]byte
	altStack [][]byte
	script   Script
	pc       int

	tx    *Transaction
	txIdx int
}

// NewScriptEngine creates a script engine bound to tx's input txIdx, needed
// for signature and locktime opcodes.
func NewScriptEngine(script Script, tx *Transaction, txIdx int) *ScriptEngine {
	return &ScriptEngine{
		stack:  make([][]byte, 0, 16),
		script: script,
		tx:     tx,
		txIdx:  txIdx,
	}
}

// Execute runs the script to completion. It returns an error on any opcode
// failure; on success, the caller must additionally check that the top
// stack element is truthy (see Success).
func (se *ScriptEngine) Execute() error {
	for se.pc < len(se.script) {
		opcode := ScriptOpcode(se.script[se.pc])
		se.pc++
		if err := se.executeOpcode(opcode); err != nil {
			return err
		}
	}
	return nil
}

// Success reports whether the engine terminated with a truthy top stack
// element, per the evaluation contract.
func (se *ScriptEngine) Success() bool {
	if len(se.stack) == 0 {
		return false
	}
	return isTrue(se.stack[len(se.stack)-1])
}

func (se *ScriptEngine) pop() ([]byte, error) {
	if len(se.stack) == 0 {
		return nil, fmt.Errorf("pop: stack empty")
	}
	v := se.stack[len(se.stack)-1]
	se.stack = se.stack[:len(se.stack)-1]
	return v, nil
}

func (se *ScriptEngine) push(v []byte) {
	se.stack = append(se.stack, v)
}

func (se *ScriptEngine) top() ([]byte, error) {
	if len(se.stack) == 0 {
		return nil, fmt.Errorf("stack empty")
	}
	return se.stack[len(se.stack)-1], nil
}

func (se *ScriptEngine) executeOpcode(opcode ScriptOpcode) error {
	switch {
	case opcode == OP_0:
		se.push([]byte{})
		return nil
	case opcode == OP_1NEGATE:
		se.push([]byte{0x81})
		return nil
	case opcode >= OP_1 && opcode <= OP_16:
		se.push(numToBytes(int64(opcode) - int64(OP_1) + 1))
		return nil
	case opcode >= 1 && opcode <= 75:
		n := int(opcode)
		if se.pc+n > len(se.script) {
			return fmt.Errorf("pushbytes: exceeds script bounds")
		}
		data := se.script[se.pc : se.pc+n]
		se.pc += n
		se.push(append([]byte(nil), data...))
		return nil
	case opcode == OP_PUSHDATA1:
		if se.pc+1 > len(se.script) {
			return fmt.Errorf("OP_PUSHDATA1: truncated length")
		}
		n := int(se.script[se.pc])
		se.pc++
		return se.pushN(n)
	case opcode == OP_PUSHDATA2:
		if se.pc+2 > len(se.script) {
			return fmt.Errorf("OP_PUSHDATA2: truncated length")
		}
		n := int(binary.LittleEndian.Uint16(se.script[se.pc : se.pc+2]))
		se.pc += 2
		return se.pushN(n)
	case opcode == OP_PUSHDATA4:
		if se.pc+4 > len(se.script) {
			return fmt.Errorf("OP_PUSHDATA4: truncated length")
		}
		n := int(binary.LittleEndian.Uint32(se.script[se.pc : se.pc+4]))
		se.pc += 4
		return se.pushN(n)
	}

	switch opcode {
	case OP_DUP:
		v, err := se.top()
		if err != nil {
			return fmt.Errorf("OP_DUP: %w", err)
		}
		se.push(append([]byte(nil), v...))

	case OP_DROP:
		if _, err := se.pop(); err != nil {
			return fmt.Errorf("OP_DROP: %w", err)
		}

	case OP_SWAP:
		if len(se.stack) < 2 {
			return fmt.Errorf("OP_SWAP: insufficient stack items")
		}
		n := len(se.stack)
		se.stack[n-1], se.stack[n-2] = se.stack[n-2], se.stack[n-1]

	case OP_ROT:
		if len(se.stack) < 3 {
			return fmt.Errorf("OP_ROT: insufficient stack items")
		}
		n := len(se.stack)
		se.stack[n-3], se.stack[n-2], se.stack[n-1] = se.stack[n-2], se.stack[n-1], se.stack[n-3]

	case OP_OVER:
		if len(se.stack) < 2 {
			return fmt.Errorf("OP_OVER: insufficient stack items")
		}
		v := se.stack[len(se.stack)-2]
		se.push(append([]byte(nil), v...))

	case OP_IFDUP:
		v, err := se.top()
		if err != nil {
			return fmt.Errorf("OP_IFDUP: %w", err)
		}
		if isTrue(v) {
			se.push(append([]byte(nil), v...))
		}

	case OP_DEPTH:
		se.push(numToBytes(int64(len(se.stack))))

	case OP_SIZE:
		v, err := se.top()
		if err != nil {
			return fmt.Errorf("OP_SIZE: %w", err)
		}
		se.push(numToBytes(int64(len(v))))

	case OP_EQUAL:
		b, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_EQUAL: %w", err)
		}
		a, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_EQUAL: %w", err)
		}
		if bytes.Equal(a, b) {
			se.push([]byte{1})
		} else {
			se.push([]byte{})
		}

	case OP_EQUALVERIFY:
		if err := se.executeOpcode(OP_EQUAL); err != nil {
			return err
		}
		return se.executeOpcode(OP_VERIFY)

	case OP_VERIFY:
		v, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_VERIFY: %w", err)
		}
		if !isTrue(v) {
			return fmt.Errorf("OP_VERIFY: failed")
		}

	case OP_GREATERTHAN:
		b, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_GREATERTHAN: %w", err)
		}
		a, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_GREATERTHAN: %w", err)
		}
		if bytesToNum(a) > bytesToNum(b) {
			se.push([]byte{1})
		} else {
			se.push([]byte{})
		}

	case OP_SHA256:
		v, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_SHA256: %w", err)
		}
		sum := sha256.Sum256(v)
		se.push(sum[:])

	case OP_HASH160:
		v, err := se.pop()
		if err != nil {
			return fmt.Errorf("OP_HASH160: %w", err)
		}
		h := HASH160(v)
		se.push(h.Bytes())

	case OP_CHECKSIG:
		ok, err := se.checkSig()
		if err != nil {
			return fmt.Errorf("OP_CHECKSIG: %w", err)
		}
		if ok {
			se.push([]byte{1})
		} else {
			se.push([]byte{})
		}

	case OP_CHECKSIGVERIFY:
		if err := se.executeOpcode(OP_CHECKSIG); err != nil {
			return err
		}
		return se.executeOpcode(OP_VERIFY)

	case OP_CHECKMULTISIG:
		ok, err := se.checkMultiSig()
		if err != nil {
			return fmt.Errorf("OP_CHECKMULTISIG: %w", err)
		}
		if ok {
			se.push([]byte{1})
		} else {
			se.push([]byte{})
		}

	case OP_CHECKMULTISIGVERIFY:
		if err := se.executeOpcode(OP_CHECKMULTISIG); err != nil {
			return err
		}
		return se.executeOpcode(OP_VERIFY)

	case OP_CHECKLOCKTIMEVERIFY:
		v, err := se.top()
		if err != nil {
			return fmt.Errorf("OP_CHECKLOCKTIMEVERIFY: %w", err)
		}
		locktime := bytesToNum(v)
		if se.tx.Inputs[se.txIdx].Sequence == 0xffffffff {
			return fmt.Errorf("OP_CHECKLOCKTIMEVERIFY: final input")
		}
		const lockTimeThreshold = 500_000_000
		sameUnit := (locktime < lockTimeThreshold) == (int64(se.tx.LockTime) < lockTimeThreshold)
		if !sameUnit {
			return fmt.Errorf("OP_CHECKLOCKTIMEVERIFY: locktime unit mismatch")
		}
		if int64(se.tx.LockTime) < locktime {
			return fmt.Errorf("OP_CHECKLOCKTIMEVERIFY: not yet reached")
		}

	case OP_CHECKSEQUENCEVERIFY:
		v, err := se.top()
		if err != nil {
			return fmt.Errorf("OP_CHECKSEQUENCEVERIFY: %w", err)
		}
		requested := bytesToNum(v)
		const sequenceDisableFlag = 1 << 31
		if requested&sequenceDisableFlag != 0 {
			return nil
		}
		sequence := int64(se.tx.Inputs[se.txIdx].Sequence)
		if sequence&sequenceDisableFlag != 0 {
			return fmt.Errorf("OP_CHECKSEQUENCEVERIFY: input sequence disabled")
		}
		const sequenceTypeMask = 1 << 22
		const sequenceMask = 0x0000ffff
		if (requested&sequenceTypeMask) != (sequence&sequenceTypeMask) ||
			(sequence&sequenceMask) < (requested&sequenceMask) {
			return fmt.Errorf("OP_CHECKSEQUENCEVERIFY: relative lock not reached")
		}

	default:
		return fmt.Errorf("unimplemented opcode: %#02x", byte(opcode))
	}

	return nil
}

func (se *ScriptEngine) pushN(n int) error {
	if n < 0 || se.pc+n > len(se.script) {
		return fmt.Errorf("pushdata: exceeds script bounds")
	}
	data := se.script[se.pc : se.pc+n]
	se.pc += n
	se.push(append([]byte(nil), data...))
	return nil
}

// checkSig implements OP_CHECKSIG for the legacy (P2PKH) evaluation
// context: the scriptCode is the prevout's scriptPubKey for the current
// input, per spec's legacy sighash rule.
func (se *ScriptEngine) checkSig() (bool, error) {
	pubKeyBytes, err := se.pop()
	if err != nil {
		return false, err
	}
	sigBytes, err := se.pop()
	if err != nil {
		return false, err
	}
	scriptCode := se.tx.Inputs[se.txIdx].PrevOutput.ScriptPubKey
	return verifyLegacySignature(se.tx, se.txIdx, scriptCode, sigBytes, pubKeyBytes), nil
}

// checkMultiSig implements the consensus OP_CHECKMULTISIG stack contract,
// including the historical extra pop of a dummy element.
func (se *ScriptEngine) checkMultiSig() (bool, error) {
	nBytes, err := se.pop()
	if err != nil {
		return false, err
	}
	n := int(bytesToNum(nBytes))
	if n < 0 || n > 20 {
		return false, fmt.Errorf("invalid pubkey count %d", n)
	}
	pubkeys := make([][]byte, n)
	for i := n - 1; i >= 0; i-- {
		pk, err := se.pop()
		if err != nil {
			return false, err
		}
		pubkeys[i] = pk
	}

	mBytes, err := se.pop()
	if err != nil {
		return false, err
	}
	m := int(bytesToNum(mBytes))
	if m < 0 || m > n {
		return false, fmt.Errorf("invalid signature count %d", m)
	}
	sigs := make([][]byte, m)
	for i := m - 1; i >= 0; i-- {
		s, err := se.pop()
		if err != nil {
			return false, err
		}
		sigs[i] = s
	}

	// Consensus off-by-one: pop and discard one extra stack element.
	if _, err := se.pop(); err != nil {
		return false, err
	}

	scriptCode := se.tx.Inputs[se.txIdx].PrevOutput.ScriptPubKey
	pkIdx := 0
	for _, sig := range sigs {
		matched := false
		for pkIdx < len(pubkeys) {
			candidate := pubkeys[pkIdx]
			pkIdx++
			if verifyLegacySignature(se.tx, se.txIdx, scriptCode, sig, candidate) {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// verifyLegacySignature verifies sigBytes (DER signature + trailing sighash
// byte) against pubKeyBytes under the legacy sighash for inputIdx. Only
// SIGHASH_ALL (trailing byte 0x01) is accepted.
func verifyLegacySignature(tx *Transaction, inputIdx int, scriptCode, sigBytes, pubKeyBytes []byte) bool {
	if len(sigBytes) < 1 {
		return false
	}
	sighashType := sigBytes[len(sigBytes)-1]
	if sighashType != byte(SighashAll) {
		return false
	}
	der := sigBytes[:len(sigBytes)-1]

	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}

	hash := LegacySigHash(tx, inputIdx, scriptCode)
	return sig.Verify(hash.Bytes(), pubKey)
}

// verifySegwitSignature verifies a BIP-143 P2WPKH signature.
func verifySegwitSignature(tx *Transaction, inputIdx int, pubkeyHash Hash160, sigBytes, pubKeyBytes []byte) bool {
	if len(sigBytes) < 1 {
		return false
	}
	sighashType := sigBytes[len(sigBytes)-1]
	if sighashType != byte(SighashAll) {
		return false
	}
	der := sigBytes[:len(sigBytes)-1]

	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}

	hash := BIP143SigHash(tx, inputIdx, pubkeyHash)
	return sig.Verify(hash.Bytes(), pubKey)
}

// isTrue reports whether data is a script-truthy value: non-empty, and not
// all-zero (a lone trailing sign byte of 0x80 is still considered false).
func isTrue(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			return true
		}
	}
	last := data[len(data)-1]
	return last != 0 && last != 0x80
}

// bytesToNum decodes a minimally-encoded, sign-magnitude little-endian
// script integer.
func bytesToNum(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	var result int64
	for i, b := range data {
		if i == len(data)-1 {
			result |= int64(b&0x7f) << uint(i*8)
			if b&0x80 != 0 {
				return -result
			}
			return result
		}
		result |= int64(b) << uint(i*8)
	}
	return result
}

// numToBytes encodes num as a minimally-encoded, sign-magnitude
// little-endian script integer.
func numToBytes(num int64) []byte {
	if num == 0 {
		return []byte{}
	}

	negative := num < 0
	abs := num
	if negative {
		abs = -abs
	}

	var result []byte
	for abs > 0 {
		result = append(result, byte(abs&0xff))
		abs >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}
