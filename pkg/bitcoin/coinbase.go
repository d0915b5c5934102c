package bitcoin

// BlockSubsidy is the fixed block reward in satoshis.
const BlockSubsidy = 5_000_000_000

// WitnessCommitmentHeader prefixes the witness-commitment OP_RETURN payload.
var WitnessCommitmentHeader = [4]byte{0xaa, 0x21, 0xa9, 0xed}

// WitnessReservedValue is the coinbase's witness stack item, 32 zero bytes.
var WitnessReservedValue = [32]byte{}

// bip34HeightPush returns the minimal script push encoding height h, per
// BIP-34: a length byte followed by h as a minimal little-endian script
// number, with a 0x00 byte appended when the top bit of the last byte is set
// so the value stays positive. Height 0 is pushed as the single byte 0x00
// (length 1), not as a bare OP_0.
func bip34HeightPush(h uint32) []byte {
	var le []byte
	v := h
	for v > 0 {
		le = append(le, byte(v&0xff))
		v >>= 8
	}
	if len(le) == 0 {
		le = []byte{0}
	}
	if le[len(le)-1]&0x80 != 0 {
		le = append(le, 0x00)
	}
	return append([]byte{byte(len(le))}, le...)
}

// BuildCoinbase constructs the coinbase transaction per §4.9: output 0 pays
// the subsidy plus the selected transactions' fees to payoutScript; output 1
// is the segwit witness-commitment OP_RETURN over the wtxid merkle root.
func BuildCoinbase(height uint32, selected []*Transaction, payoutScript []byte, extraNonce []byte) *Transaction {
	var totalFees uint64
	wtxids := make([]Hash256, 0, len(selected)+1)
	wtxids = append(wtxids, ZeroHash) // coinbase wtxid substituted with zero bytes
	for _, tx := range selected {
		totalFees += tx.Meta.Fee
		wtxids = append(wtxids, tx.Meta.Wtxid)
	}

	wtxidRoot := CalculateMerkleRoot(wtxids)

	var commitmentInput [64]byte
	copy(commitmentInput[0:32], wtxidRoot.Bytes())
	copy(commitmentInput[32:64], WitnessReservedValue[:])
	commitment := HASH256(commitmentInput[:])

	commitmentScript := make([]byte, 0, 2+36)
	commitmentScript = append(commitmentScript, byte(OP_RETURN))
	commitmentScript = append(commitmentScript, 36) // push 36 bytes
	commitmentScript = append(commitmentScript, WitnessCommitmentHeader[:]...)
	commitmentScript = append(commitmentScript, commitment.Bytes()...)

	scriptSig := append(bip34HeightPush(height), extraNonce...)

	coinbase := &Transaction{
		Version: 2,
		Inputs: []TxInput{
			{
				PrevTxid:  ZeroHash,
				PrevIndex: 0xffffffff,
				ScriptSig: scriptSig,
				Sequence:  0xffffffff,
				Witness:   [][]byte{WitnessReservedValue[:]},
			},
		},
		Outputs: []TxOutput{
			{Value: BlockSubsidy + totalFees, ScriptPubKey: payoutScript},
			{Value: 0, ScriptPubKey: commitmentScript},
		},
		LockTime: 0,
	}

	coinbase.Meta.Txid = coinbase.ComputeTxid()
	coinbase.Meta.Wtxid = coinbase.ComputeWtxid()
	coinbase.Meta.Weight = coinbase.Weight()

	return coinbase
}
