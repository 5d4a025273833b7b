package sale

import "math/big"

// Ledger amounts mirror a 256-bit unsigned word: additions past this bound and
// subtractions below zero fail the whole transition instead of wrapping.
var maxLedgerAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, errNegativeAmount
	}
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxLedgerAmount) > 0 {
		return nil, errAmountOverflow
	}
	return sum, nil
}

func checkedSub(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, errNegativeAmount
	}
	diff := new(big.Int).Sub(a, b)
	if diff.Sign() < 0 {
		return nil, errAmountUnderflow
	}
	return diff, nil
}
