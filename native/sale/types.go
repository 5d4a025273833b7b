package sale

import "math/big"

// Allocation is the combined ledger record for one participant: the exact
// value they must submit in their single purchase call and the token quantity
// they receive for it. Both sides default to zero until the owner configures
// them, and both are driven back to zero by a settled purchase.
type Allocation struct {
	Participant [20]byte `json:"participant"`
	PaymentDue  *big.Int `json:"paymentDue"`
	AssetDue    *big.Int `json:"assetDue"`
}

// Clone returns a deep copy of the allocation record.
func (a *Allocation) Clone() *Allocation {
	if a == nil {
		return nil
	}
	clone := *a
	if a.PaymentDue != nil {
		clone.PaymentDue = new(big.Int).Set(a.PaymentDue)
	}
	if a.AssetDue != nil {
		clone.AssetDue = new(big.Int).Set(a.AssetDue)
	}
	return &clone
}

// Configured reports whether either side of the allocation is non-zero.
func (a *Allocation) Configured() bool {
	if a == nil {
		return false
	}
	return (a.PaymentDue != nil && a.PaymentDue.Sign() > 0) ||
		(a.AssetDue != nil && a.AssetDue.Sign() > 0)
}

// Entry is one (participant, amount) pair inside an administrative batch.
// Duplicate participants within a batch resolve last-write-wins.
type Entry struct {
	Participant [20]byte
	Amount      *big.Int
}

// Receipt records the observable outcome of a settled purchase.
type Receipt struct {
	Purchaser   [20]byte `json:"purchaser"`
	Beneficiary [20]byte `json:"beneficiary"`
	Value       *big.Int `json:"value"`
	Tokens      *big.Int `json:"tokens"`
}
