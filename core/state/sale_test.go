package state

import (
	"math/big"
	"testing"

	"tokensale/native/sale"
)

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestSaleAllocationRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	participant := testAddr(0x01)

	if _, ok, err := manager.SaleAllocationGet(participant); err != nil || ok {
		t.Fatalf("expected missing allocation, ok=%v err=%v", ok, err)
	}

	alloc := &sale.Allocation{
		Participant: participant,
		PaymentDue:  big.NewInt(100),
		AssetDue:    big.NewInt(5000),
	}
	if err := manager.SaleAllocationPut(alloc); err != nil {
		t.Fatalf("put allocation: %v", err)
	}

	loaded, ok, err := manager.SaleAllocationGet(participant)
	if err != nil || !ok {
		t.Fatalf("get allocation: ok=%v err=%v", ok, err)
	}
	if loaded.PaymentDue.Cmp(big.NewInt(100)) != 0 || loaded.AssetDue.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected allocation: %+v", loaded)
	}

	// Stored records are independent copies.
	loaded.PaymentDue.SetInt64(1)
	again, _, err := manager.SaleAllocationGet(participant)
	if err != nil {
		t.Fatalf("re-get allocation: %v", err)
	}
	if again.PaymentDue.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("stored record must not alias caller big.Ints")
	}
}

func TestSaleAllocationNilSidesNormalize(t *testing.T) {
	manager := newTestManager(t)
	participant := testAddr(0x02)
	if err := manager.SaleAllocationPut(&sale.Allocation{Participant: participant}); err != nil {
		t.Fatalf("put allocation: %v", err)
	}
	loaded, ok, err := manager.SaleAllocationGet(participant)
	if err != nil || !ok {
		t.Fatalf("get allocation: ok=%v err=%v", ok, err)
	}
	if loaded.PaymentDue == nil || loaded.AssetDue == nil {
		t.Fatalf("nil sides must normalize to zero: %+v", loaded)
	}
}

func TestSaleTotalReceivedMonotonic(t *testing.T) {
	manager := newTestManager(t)

	total, err := manager.SaleTotalReceived()
	if err != nil {
		t.Fatalf("initial total: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("expected zero initial total, got %s", total)
	}

	if err := manager.SaleSetTotalReceived(big.NewInt(100)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	if err := manager.SaleSetTotalReceived(big.NewInt(350)); err != nil {
		t.Fatalf("grow total: %v", err)
	}
	if err := manager.SaleSetTotalReceived(big.NewInt(200)); err == nil {
		t.Fatalf("expected monotonicity rejection")
	}
	if err := manager.SaleSetTotalReceived(big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative rejection")
	}
}

func TestTokenMinterCreditsBalanceAndSupply(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("SALE", "Sale Token", 18); err != nil {
		t.Fatalf("register token: %v", err)
	}
	minter := NewTokenMinter(manager, "sale")
	beneficiary := testAddr(0x03)

	if err := minter.Mint(beneficiary, big.NewInt(5000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := manager.Balance(beneficiary[:], "SALE")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected balance: %s", balance)
	}
	supply, err := manager.TokenSupply("SALE")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected supply: %s", supply)
	}

	if err := minter.Mint(beneficiary, big.NewInt(0)); err == nil {
		t.Fatalf("expected zero mint rejection")
	}
}

func TestTokenMinterRespectsMintPause(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("SALE", "Sale Token", 18); err != nil {
		t.Fatalf("register token: %v", err)
	}
	if err := manager.SetTokenMintPaused("SALE", true); err != nil {
		t.Fatalf("pause mint: %v", err)
	}
	minter := NewTokenMinter(manager, "SALE")
	if err := minter.Mint(testAddr(0x04), big.NewInt(1)); err == nil {
		t.Fatalf("expected paused mint rejection")
	}
}

func TestValueCollectorCreditsCollectionAccount(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("PAY", "Payment Denom", 18); err != nil {
		t.Fatalf("register denom: %v", err)
	}
	collection := testAddr(0x05)
	collector := NewValueCollector(manager, collection, "pay")

	if err := collector.Forward(big.NewInt(100)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := collector.Forward(big.NewInt(250)); err != nil {
		t.Fatalf("second forward: %v", err)
	}
	balance, err := manager.Balance(collection[:], "PAY")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(350)) != 0 {
		t.Fatalf("unexpected collection balance: %s", balance)
	}
	if err := collector.Forward(big.NewInt(0)); err == nil {
		t.Fatalf("expected zero forward rejection")
	}
}

func TestRoleAuthorizerGatesOwner(t *testing.T) {
	manager := newTestManager(t)
	owner := testAddr(0x06)
	auth := NewRoleAuthorizer(manager, RoleSaleOwner)

	if auth.IsOwner(owner) {
		t.Fatalf("owner must not be recognized before role grant")
	}
	if err := manager.SetRole(RoleSaleOwner, owner[:]); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if !auth.IsOwner(owner) {
		t.Fatalf("expected owner recognition")
	}
	if auth.IsOwner(testAddr(0x07)) {
		t.Fatalf("stranger must not pass the owner check")
	}
}
