package sale

import (
	"errors"
	"fmt"
	"math/big"

	"tokensale/core/events"
	"tokensale/native/common"
)

// ModuleName identifies the sale module to the pause view.
const ModuleName = "sale"

var (
	errNilState        = errors.New("sale engine: state not configured")
	errMinterNotSet    = errors.New("sale engine: token minter not configured")
	errCollectorNotSet = errors.New("sale engine: value collector not configured")
	errNegativeAmount  = errors.New("sale engine: amount must not be negative")
	errAmountOverflow  = errors.New("sale engine: amount overflow")
	errAmountUnderflow = errors.New("sale engine: amount underflow")

	// ErrUnauthorized is returned when a configuration call does not come
	// from the sale owner.
	ErrUnauthorized = errors.New("sale engine: caller is not the sale owner")
	// ErrInvalidBeneficiary is returned when a purchase names the zero
	// address as its beneficiary.
	ErrInvalidBeneficiary = errors.New("sale engine: invalid beneficiary")
	// ErrInvalidPurchase is returned when the submitted value is zero, does
	// not exactly match the configured payment due, or the beneficiary has
	// no token allocation left.
	ErrInvalidPurchase = errors.New("sale engine: invalid purchase")
	// ErrMintFailed is returned when the token mint collaborator rejects the
	// settlement. No ledger mutation survives.
	ErrMintFailed = errors.New("sale engine: mint failed")
	// ErrForwardFailed is returned when forwarding the received value to the
	// collection account fails. No ledger mutation survives.
	ErrForwardFailed = errors.New("sale engine: value forwarding failed")
)

type engineState interface {
	SaleAllocationGet(participant [20]byte) (*Allocation, bool, error)
	SaleAllocationPut(*Allocation) error
	SaleTotalReceived() (*big.Int, error)
	SaleSetTotalReceived(*big.Int) error
}

// Minter issues sale tokens to a beneficiary. Implementations must be
// all-or-nothing: on error no tokens may have been credited.
type Minter interface {
	Mint(beneficiary [20]byte, amount *big.Int) error
}

// Collector forwards received value to the collection account.
// Implementations must be all-or-nothing.
type Collector interface {
	Forward(amount *big.Int) error
}

// Authorizer answers whether an address holds the sale owner capability.
type Authorizer interface {
	IsOwner(addr [20]byte) bool
}

// Engine wires the allocation ledger business logic with persistence, the
// external mint/forward collaborators, and event emission.
//
// Every state-changing call runs to completion before the host lets another
// one in, so the engine holds no locks. Ledger writes are staged until both
// external collaborators have succeeded; if anything fails mid-transition the
// host discards the uncommitted state, so a failed purchase leaves the
// participant's allocation untouched.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	minter    Minter
	collector Collector
	auth      Authorizer
	pauses    common.PauseView
}

// NewEngine constructs a sale engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetMinter configures the token-issuance collaborator.
func (e *Engine) SetMinter(m Minter) { e.minter = m }

// SetCollector configures the value-forwarding collaborator.
func (e *Engine) SetCollector(c Collector) { e.collector = c }

// SetAuthorizer configures the owner capability check.
func (e *Engine) SetAuthorizer(a Authorizer) { e.auth = a }

// SetPauses configures the pause view consulted before state-changing calls.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func newAllocation(participant [20]byte) *Allocation {
	return &Allocation{
		Participant: participant,
		PaymentDue:  big.NewInt(0),
		AssetDue:    big.NewInt(0),
	}
}

func ensureAllocation(alloc *Allocation, participant [20]byte) *Allocation {
	if alloc == nil {
		return newAllocation(participant)
	}
	if alloc.PaymentDue == nil {
		alloc.PaymentDue = big.NewInt(0)
	}
	if alloc.AssetDue == nil {
		alloc.AssetDue = big.NewInt(0)
	}
	return alloc
}

func (e *Engine) loadAllocation(participant [20]byte) (*Allocation, error) {
	alloc, ok, err := e.state.SaleAllocationGet(participant)
	if err != nil {
		return nil, err
	}
	if !ok || alloc == nil {
		return newAllocation(participant), nil
	}
	return ensureAllocation(alloc, participant), nil
}

// SetPaymentDue overwrites the exact purchase value required from each listed
// participant. Only the sale owner may call it; each entry replaces the prior
// value rather than adding to it.
func (e *Engine) SetPaymentDue(caller [20]byte, entries []Entry) error {
	return e.applyAllocationUpdate(caller, entries, func(alloc *Allocation, amount *big.Int) {
		alloc.PaymentDue = amount
	})
}

// SetAssetDue overwrites the token quantity owed to each listed participant.
// Only the sale owner may call it; each entry replaces the prior value.
func (e *Engine) SetAssetDue(caller [20]byte, entries []Entry) error {
	return e.applyAllocationUpdate(caller, entries, func(alloc *Allocation, amount *big.Int) {
		alloc.AssetDue = amount
	})
}

func (e *Engine) applyAllocationUpdate(caller [20]byte, entries []Entry, assign func(*Allocation, *big.Int)) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if e.auth == nil || !e.auth.IsOwner(caller) {
		return ErrUnauthorized
	}
	for _, entry := range entries {
		amount := cloneBigInt(entry.Amount)
		if amount.Sign() < 0 {
			return errNegativeAmount
		}
		if amount.Cmp(maxLedgerAmount) > 0 {
			return errAmountOverflow
		}
		alloc, err := e.loadAllocation(entry.Participant)
		if err != nil {
			return err
		}
		assign(alloc, amount)
		if err := e.state.SaleAllocationPut(alloc); err != nil {
			return err
		}
		e.emit(events.SaleAllocationUpdated{
			Participant: entry.Participant,
			PaymentDue:  cloneBigInt(alloc.PaymentDue),
			AssetDue:    cloneBigInt(alloc.AssetDue),
		})
	}
	return nil
}

// SettlePurchase validates a purchase against the beneficiary's allocation
// and, when valid, atomically mints the full outstanding token allocation,
// forwards the received value to the collection account, and drives both
// sides of the allocation to zero.
//
// The submitted value must equal the configured payment due exactly; there is
// no partial settlement across multiple calls.
func (e *Engine) SettlePurchase(purchaser, beneficiary [20]byte, value *big.Int) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if e.minter == nil {
		return nil, errMinterNotSet
	}
	if e.collector == nil {
		return nil, errCollectorNotSet
	}
	if isZeroAddress(beneficiary) {
		return nil, ErrInvalidBeneficiary
	}
	submitted := cloneBigInt(value)
	if submitted.Sign() < 0 {
		return nil, errNegativeAmount
	}
	alloc, err := e.loadAllocation(beneficiary)
	if err != nil {
		return nil, err
	}
	if !validPurchase(alloc, submitted) {
		return nil, ErrInvalidPurchase
	}

	// A valid purchase always consumes the entire outstanding allocation.
	tokens := cloneBigInt(alloc.AssetDue)

	total, err := e.state.SaleTotalReceived()
	if err != nil {
		return nil, err
	}
	newTotal, err := checkedAdd(total, submitted)
	if err != nil {
		return nil, err
	}
	newAssetDue, err := checkedSub(alloc.AssetDue, tokens)
	if err != nil {
		return nil, err
	}
	newPaymentDue, err := checkedSub(alloc.PaymentDue, submitted)
	if err != nil {
		return nil, err
	}

	// External effects run before any ledger write so a collaborator failure
	// cannot strand a half-settled allocation.
	if err := e.minter.Mint(beneficiary, tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	if err := e.collector.Forward(submitted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForwardFailed, err)
	}

	alloc.AssetDue = newAssetDue
	alloc.PaymentDue = newPaymentDue
	if err := e.state.SaleAllocationPut(alloc); err != nil {
		return nil, err
	}
	if err := e.state.SaleSetTotalReceived(newTotal); err != nil {
		return nil, err
	}

	e.emit(events.SalePurchaseSettled{
		Purchaser:   purchaser,
		Beneficiary: beneficiary,
		Value:       cloneBigInt(submitted),
		Tokens:      cloneBigInt(tokens),
		Raised:      cloneBigInt(newTotal),
	})
	return &Receipt{
		Purchaser:   purchaser,
		Beneficiary: beneficiary,
		Value:       submitted,
		Tokens:      tokens,
	}, nil
}

// validPurchase is the validity predicate gating settlement: the submitted
// value must be non-zero, match the payment due exactly, and the beneficiary
// must still hold a token allocation.
func validPurchase(alloc *Allocation, submitted *big.Int) bool {
	if alloc == nil || submitted == nil || submitted.Sign() == 0 {
		return false
	}
	if alloc.PaymentDue == nil || alloc.PaymentDue.Cmp(submitted) != 0 {
		return false
	}
	return alloc.AssetDue != nil && alloc.AssetDue.Sign() > 0
}

// Allocation returns the current allocation record for the participant
// without mutating state. Unconfigured participants report zero on both
// sides.
func (e *Engine) Allocation(participant [20]byte) (*Allocation, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	alloc, err := e.loadAllocation(participant)
	if err != nil {
		return nil, err
	}
	return alloc.Clone(), nil
}

// TotalReceived returns the running sum of all value received across settled
// purchases. The total is monotonically non-decreasing.
func (e *Engine) TotalReceived() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.SaleTotalReceived()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(total), nil
}
