package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"tokensale/native/sale"
)

var (
	saleAllocationPrefix = []byte("sale/allocation/")
	saleTotalReceivedKey = ethcrypto.Keccak256([]byte("sale/total-received"))
)

func saleAllocationKey(participant [20]byte) []byte {
	buf := make([]byte, len(saleAllocationPrefix)+len(participant))
	copy(buf, saleAllocationPrefix)
	copy(buf[len(saleAllocationPrefix):], participant[:])
	return ethcrypto.Keccak256(buf)
}

type storedAllocation struct {
	Participant [20]byte
	PaymentDue  *big.Int
	AssetDue    *big.Int
}

func newStoredAllocation(alloc *sale.Allocation) *storedAllocation {
	if alloc == nil {
		return nil
	}
	record := &storedAllocation{
		Participant: alloc.Participant,
		PaymentDue:  big.NewInt(0),
		AssetDue:    big.NewInt(0),
	}
	if alloc.PaymentDue != nil {
		record.PaymentDue = new(big.Int).Set(alloc.PaymentDue)
	}
	if alloc.AssetDue != nil {
		record.AssetDue = new(big.Int).Set(alloc.AssetDue)
	}
	return record
}

func (s *storedAllocation) toAllocation() (*sale.Allocation, error) {
	if s == nil {
		return nil, fmt.Errorf("sale: nil allocation record")
	}
	out := &sale.Allocation{
		Participant: s.Participant,
		PaymentDue:  big.NewInt(0),
		AssetDue:    big.NewInt(0),
	}
	if s.PaymentDue != nil {
		if s.PaymentDue.Sign() < 0 {
			return nil, fmt.Errorf("sale: negative payment due in storage")
		}
		out.PaymentDue = new(big.Int).Set(s.PaymentDue)
	}
	if s.AssetDue != nil {
		if s.AssetDue.Sign() < 0 {
			return nil, fmt.Errorf("sale: negative asset due in storage")
		}
		out.AssetDue = new(big.Int).Set(s.AssetDue)
	}
	return out, nil
}

// SaleAllocationGet loads the allocation record for a participant. Missing
// records report ok=false so the engine can substitute a zero allocation.
func (m *Manager) SaleAllocationGet(participant [20]byte) (*sale.Allocation, bool, error) {
	if m == nil {
		return nil, false, errNilManager
	}
	data, err := m.read(saleAllocationKey(participant))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	record := new(storedAllocation)
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, false, err
	}
	alloc, err := record.toAllocation()
	if err != nil {
		return nil, false, err
	}
	return alloc, true, nil
}

// SaleAllocationPut stages the allocation record for a participant.
func (m *Manager) SaleAllocationPut(alloc *sale.Allocation) error {
	if m == nil {
		return errNilManager
	}
	if alloc == nil {
		return fmt.Errorf("sale: allocation must not be nil")
	}
	encoded, err := rlp.EncodeToBytes(newStoredAllocation(alloc))
	if err != nil {
		return err
	}
	m.write(saleAllocationKey(alloc.Participant), encoded)
	return nil
}

// SaleTotalReceived returns the running sum of all value received by settled
// purchases. Missing entries default to zero.
func (m *Manager) SaleTotalReceived() (*big.Int, error) {
	if m == nil {
		return nil, errNilManager
	}
	data, err := m.read(saleTotalReceivedKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(data, total); err != nil {
		return nil, err
	}
	return total, nil
}

// SaleSetTotalReceived stages the running total. The total never decreases;
// callers computing a smaller value are rejected.
func (m *Manager) SaleSetTotalReceived(total *big.Int) error {
	if m == nil {
		return errNilManager
	}
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("sale: total received must not be negative")
	}
	current, err := m.SaleTotalReceived()
	if err != nil {
		return err
	}
	if total.Cmp(current) < 0 {
		return fmt.Errorf("sale: total received must not decrease")
	}
	encoded, err := rlp.EncodeToBytes(total)
	if err != nil {
		return err
	}
	m.write(saleTotalReceivedKey, encoded)
	return nil
}

// --- Engine collaborators ---

// RoleSaleOwner gates the sale configuration entry points.
const RoleSaleOwner = "ROLE_SALE_OWNER"

// TokenMinter implements the sale engine's mint collaborator on top of the
// token ledger: a mint credits the beneficiary balance and grows the total
// supply in one staged step.
type TokenMinter struct {
	manager *Manager
	symbol  string
}

// NewTokenMinter builds a minter issuing the provided token symbol.
func NewTokenMinter(m *Manager, symbol string) *TokenMinter {
	return &TokenMinter{manager: m, symbol: normalizeSymbol(symbol)}
}

// Mint credits the beneficiary with freshly issued tokens.
func (t *TokenMinter) Mint(beneficiary [20]byte, amount *big.Int) error {
	if t == nil || t.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive")
	}
	meta, err := t.manager.Token(t.symbol)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("token %s not registered", t.symbol)
	}
	if meta.MintPaused {
		return fmt.Errorf("token %s mint paused", t.symbol)
	}
	balance, err := t.manager.Balance(beneficiary[:], t.symbol)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(balance, amount)
	if err := t.manager.SetBalance(beneficiary[:], t.symbol, updated); err != nil {
		return err
	}
	if _, err := t.manager.AdjustTokenSupply(t.symbol, amount); err != nil {
		return err
	}
	return nil
}

// ValueCollector implements the sale engine's forwarding collaborator by
// crediting the collection account in the payment denomination.
type ValueCollector struct {
	manager   *Manager
	collector [20]byte
	denom     string
}

// NewValueCollector builds a collector crediting the provided account.
func NewValueCollector(m *Manager, collector [20]byte, denom string) *ValueCollector {
	return &ValueCollector{manager: m, collector: collector, denom: normalizeSymbol(denom)}
}

// Forward credits the collection account with the received value.
func (c *ValueCollector) Forward(amount *big.Int) error {
	if c == nil || c.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("forward amount must be positive")
	}
	balance, err := c.manager.Balance(c.collector[:], c.denom)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(balance, amount)
	return c.manager.SetBalance(c.collector[:], c.denom, updated)
}

// RoleAuthorizer implements the engine's owner capability check on top of
// role membership.
type RoleAuthorizer struct {
	manager *Manager
	role    string
}

// NewRoleAuthorizer builds an authorizer backed by the provided role.
func NewRoleAuthorizer(m *Manager, role string) *RoleAuthorizer {
	return &RoleAuthorizer{manager: m, role: role}
}

// IsOwner reports whether the address holds the owner role.
func (a *RoleAuthorizer) IsOwner(addr [20]byte) bool {
	if a == nil || a.manager == nil {
		return false
	}
	return a.manager.HasRole(a.role, addr[:])
}
