package bitcoin

import "fmt"

// ClassifyInput determines how an input should be verified, from the
// scriptPubKey of the output it spends.
func ClassifyInput(prevOutScript []byte) InputType {
	switch Script(prevOutScript).AnalyzeScript() {
	case ScriptTypeP2PKH:
		return InputP2PKH
	case ScriptTypeP2WPKH:
		return InputP2WPKH
	default:
		return InputOther
	}
}

// verifyP2PKH runs §4.4: concatenate script_sig ‖ script_pubkey and
// evaluate it with the script interpreter.
func verifyP2PKH(tx *Transaction, idx int) (bool, error) {
	in := tx.Inputs[idx]
	full := append(append([]byte(nil), in.ScriptSig...), in.PrevOutput.ScriptPubKey...)

	engine := NewScriptEngine(Script(full), tx, idx)
	if err := engine.Execute(); err != nil {
		return false, nil //nolint:nilerr // script failure is a verification result, not a fatal error
	}
	return engine.Success(), nil
}

// verifyP2WPKH runs §4.5: witness must be exactly [sig, compressed pubkey],
// the pubkey must hash to the scriptPubKey's embedded hash, and the BIP-143
// signature must verify.
func verifyP2WPKH(tx *Transaction, idx int) (bool, error) {
	in := tx.Inputs[idx]
	if len(in.Witness) != 2 {
		return false, nil
	}
	sig, pubkey := in.Witness[0], in.Witness[1]
	if len(pubkey) != 33 {
		return false, nil
	}

	spk := in.PrevOutput.ScriptPubKey
	if len(spk) != P2WPKHScriptSize {
		return false, fmt.Errorf("malformed P2WPKH scriptPubKey")
	}
	var expected Hash160
	copy(expected[:], spk[2:22])

	if HASH160(pubkey) != expected {
		return false, nil
	}

	return verifySegwitSignature(tx, idx, expected, sig, pubkey), nil
}

// VerifyTransaction classifies and verifies every input of tx. A
// transaction is valid iff every input's InputType is supported and
// verifies; an Other-typed input invalidates the whole transaction.
func VerifyTransaction(tx *Transaction) Rejection {
	for i := range tx.Inputs {
		tx.Inputs[i].InputType = ClassifyInput(tx.Inputs[i].PrevOutput.ScriptPubKey)

		var ok bool
		var err error
		switch tx.Inputs[i].InputType {
		case InputP2PKH:
			ok, err = verifyP2PKH(tx, i)
		case InputP2WPKH:
			ok, err = verifyP2WPKH(tx, i)
		default:
			return Rejection{Reason: RejectUnsupportedInput, Detail: fmt.Sprintf("input %d", i)}
		}
		if err != nil {
			return Rejection{Reason: RejectScriptFailure, Detail: err.Error()}
		}
		if !ok {
			return Rejection{Reason: RejectScriptFailure, Detail: fmt.Sprintf("input %d", i)}
		}
	}
	return Rejection{Reason: RejectNone}
}
