package events

import (
	"math/big"
	"strings"
	"testing"
)

func TestSalePurchaseSettledAttributes(t *testing.T) {
	var purchaser, beneficiary [20]byte
	purchaser[19] = 0x01
	beneficiary[19] = 0x02

	evt := SalePurchaseSettled{
		Purchaser:   purchaser,
		Beneficiary: beneficiary,
		Value:       big.NewInt(100),
		Tokens:      big.NewInt(5000),
		Raised:      big.NewInt(100),
	}
	if evt.EventType() != TypeSalePurchaseSettled {
		t.Fatalf("unexpected event type %q", evt.EventType())
	}
	payload := evt.Event()
	if payload.Type != TypeSalePurchaseSettled {
		t.Fatalf("unexpected payload type %q", payload.Type)
	}
	if payload.Attributes["value"] != "100" || payload.Attributes["tokens"] != "5000" {
		t.Fatalf("unexpected amounts: %+v", payload.Attributes)
	}
	if !strings.HasPrefix(payload.Attributes["purchaser"], "tsl1") {
		t.Fatalf("purchaser must render bech32: %q", payload.Attributes["purchaser"])
	}
	if payload.Attributes["purchaser"] == payload.Attributes["beneficiary"] {
		t.Fatalf("distinct parties must render distinct addresses")
	}
}

func TestSaleAllocationUpdatedNilAmountsRenderZero(t *testing.T) {
	var participant [20]byte
	participant[19] = 0x03
	payload := SaleAllocationUpdated{Participant: participant}.Event()
	if payload.Attributes["paymentDue"] != "0" || payload.Attributes["assetDue"] != "0" {
		t.Fatalf("nil amounts must render as zero: %+v", payload.Attributes)
	}
}
