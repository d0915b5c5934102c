package bitcoin

// RejectReason tags why a transaction was rejected. Rejections are values
// attached to a record, never propagated as Go errors: per §7 of the engine
// design, a per-transaction failure is local and never aborts the pipeline.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectNoInputs
	RejectNoOutputs
	RejectValueOverflow
	RejectValueConservation
	RejectIdentityMismatch
	RejectWeightExceeded
	RejectFeerateTooLow
	RejectScriptFailure
	RejectUnsupportedInput
	RejectAncestorRejected
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNoInputs:
		return "no inputs"
	case RejectNoOutputs:
		return "no outputs"
	case RejectValueOverflow:
		return "value exceeds max money"
	case RejectValueConservation:
		return "outputs exceed inputs"
	case RejectIdentityMismatch:
		return "filename/txid identity mismatch"
	case RejectWeightExceeded:
		return "weight exceeds per-transaction ceiling"
	case RejectFeerateTooLow:
		return "feerate below minimum"
	case RejectScriptFailure:
		return "script or signature verification failed"
	case RejectUnsupportedInput:
		return "unsupported input type"
	case RejectAncestorRejected:
		return "depends on a rejected transaction"
	default:
		return "unknown"
	}
}

// Rejection is the value form of a per-transaction failure.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r Rejection) Error() string {
	if r.Detail == "" {
		return r.Reason.String()
	}
	return r.Reason.String() + ": " + r.Detail
}

// maxPerTxWeight is the per-transaction weight ceiling: 4,000,000 minus the
// 720 WU header+coinbase reserve named in spec §4.2 / §9.
const maxPerTxWeight = 4_000_000 - 720

// minFeeratePerVByte is the minimum accepted feerate, 1 sat/vbyte.
const minFeeratePerVByte = 1

// SanityCheck runs the ordered Values -> Identity -> Weight -> Feerate
// checks against tx. It returns the zero Rejection (RejectNone) when tx
// passes all four checks, and only then populates tx.Meta.Txid, Wtxid,
// Weight, and Fee.
func SanityCheck(tx *Transaction) Rejection {
	if len(tx.Inputs) == 0 {
		return Rejection{Reason: RejectNoInputs}
	}
	if len(tx.Outputs) == 0 {
		return Rejection{Reason: RejectNoOutputs}
	}

	var totalIn, totalOut uint64
	for _, in := range tx.Inputs {
		if in.PrevOutput.Value > MaxMoney {
			return Rejection{Reason: RejectValueOverflow, Detail: "prev_output.value"}
		}
		totalIn += in.PrevOutput.Value
	}
	for _, out := range tx.Outputs {
		if out.Value > MaxMoney {
			return Rejection{Reason: RejectValueOverflow, Detail: "output.value"}
		}
		totalOut += out.Value
	}
	if totalIn < totalOut {
		return Rejection{Reason: RejectValueConservation}
	}
	fee := totalIn - totalOut

	txid := tx.ComputeTxid()
	wtxid := tx.ComputeWtxid()
	if txid != tx.FilenameID {
		return Rejection{Reason: RejectIdentityMismatch}
	}

	weight := tx.Weight()
	if weight > maxPerTxWeight {
		return Rejection{Reason: RejectWeightExceeded}
	}

	vbytes := weight / 4
	if vbytes == 0 || fee/vbytes < minFeeratePerVByte {
		return Rejection{Reason: RejectFeerateTooLow}
	}

	tx.Meta.Txid = txid
	tx.Meta.Wtxid = wtxid
	tx.Meta.Weight = weight
	tx.Meta.Fee = fee

	return Rejection{Reason: RejectNone}
}
