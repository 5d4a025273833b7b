package events

import (
	"math/big"

	"tokensale/core/types"
	"tokensale/crypto"
)

const (
	// TypeSaleAllocationUpdated is emitted whenever the owner overwrites the
	// payment or asset allocation for a participant.
	TypeSaleAllocationUpdated = "sale.allocation.updated"
	// TypeSalePurchaseSettled is emitted whenever a purchase commits.
	TypeSalePurchaseSettled = "sale.purchase.settled"
)

type SaleAllocationUpdated struct {
	Participant [20]byte
	PaymentDue  *big.Int
	AssetDue    *big.Int
}

func (SaleAllocationUpdated) EventType() string { return TypeSaleAllocationUpdated }

func (e SaleAllocationUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSaleAllocationUpdated,
		Attributes: map[string]string{
			"participant": crypto.MustNewAddress(crypto.SalePrefix, e.Participant[:]).String(),
			"paymentDue":  formatAmount(e.PaymentDue),
			"assetDue":    formatAmount(e.AssetDue),
		},
	}
}

type SalePurchaseSettled struct {
	Purchaser   [20]byte
	Beneficiary [20]byte
	Value       *big.Int
	Tokens      *big.Int
	Raised      *big.Int
}

func (SalePurchaseSettled) EventType() string { return TypeSalePurchaseSettled }

func (e SalePurchaseSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeSalePurchaseSettled,
		Attributes: map[string]string{
			"purchaser":   crypto.MustNewAddress(crypto.SalePrefix, e.Purchaser[:]).String(),
			"beneficiary": crypto.MustNewAddress(crypto.SalePrefix, e.Beneficiary[:]).String(),
			"value":       formatAmount(e.Value),
			"tokens":      formatAmount(e.Tokens),
			"raised":      formatAmount(e.Raised),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
