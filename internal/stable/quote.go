package stable

import (
	"errors"
	"math/big"
)

// RateScale is the fixed-point scale of provider rates (1e18).
var RateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var ErrInvalidRate = errors.New("rate must be positive")

// OutGivenExactIn returns how much of balances[indexOut] is paid for
// amountIn of balances[indexIn], holding the invariant fixed. The result is
// rounded down by one unit, so dust inputs can quote below zero. balances is
// not modified.
func OutGivenExactIn(amp *big.Int, balances []*big.Int, indexIn, indexOut int, amountIn, invariant *big.Int) (*big.Int, error) {
	if err := checkIndices(len(balances), indexIn, indexOut); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrNegativeAmount
	}

	working := cloneBalances(balances)
	working[indexIn].Add(working[indexIn], amountIn)

	finalBalanceOut, err := ComputeBalance(amp, working, invariant, indexOut)
	if err != nil {
		return nil, err
	}

	amountOut := new(big.Int).Sub(balances[indexOut], finalBalanceOut)
	return amountOut.Sub(amountOut, bigOne), nil
}

// InGivenExactOut returns how much of balances[indexIn] must be sent to take
// amountOut of balances[indexOut]. The result is rounded up by one unit.
func InGivenExactOut(amp *big.Int, balances []*big.Int, indexIn, indexOut int, amountOut, invariant *big.Int) (*big.Int, error) {
	if err := checkIndices(len(balances), indexIn, indexOut); err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if balances[indexOut] == nil || amountOut.Cmp(balances[indexOut]) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	working := cloneBalances(balances)
	working[indexOut].Sub(working[indexOut], amountOut)

	finalBalanceIn, err := ComputeBalance(amp, working, invariant, indexIn)
	if err != nil {
		return nil, err
	}

	amountIn := new(big.Int).Sub(finalBalanceIn, balances[indexIn])
	return amountIn.Add(amountIn, bigOne), nil
}

// OutGivenExactInWithRates quotes a two-token pool whose balances are raw
// amounts of rate-bearing tokens. Balances and amountIn are scaled by their
// rates before solving and the output is converted back with rateOut. Token A
// is always index 0 and token B index 1.
func OutGivenExactInWithRates(amp *big.Int, indexIn, indexOut int, amountIn, balanceA, balanceB, rateA, rateB *big.Int) (*big.Int, error) {
	if err := checkIndices(2, indexIn, indexOut); err != nil {
		return nil, err
	}
	if rateA == nil || rateA.Sign() <= 0 || rateB == nil || rateB.Sign() <= 0 {
		return nil, ErrInvalidRate
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrNegativeAmount
	}

	rates := []*big.Int{rateA, rateB}
	balances := []*big.Int{
		ToScaled(balanceA, rateA),
		ToScaled(balanceB, rateB),
	}
	if balances[0].Sign() == 0 && balances[1].Sign() == 0 {
		return nil, ErrEmptyPool
	}

	invariant, err := ComputeInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	scaledOut, err := OutGivenExactIn(amp, balances, indexIn, indexOut, ToScaled(amountIn, rates[indexIn]), invariant)
	if err != nil {
		return nil, err
	}

	return FromScaled(scaledOut, rates[indexOut]), nil
}

// ToScaled converts a raw amount into rate-adjusted units: raw * rate / 1e18.
func ToScaled(raw, rate *big.Int) *big.Int {
	if raw == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(raw, rate)
	return out.Quo(out, RateScale)
}

// FromScaled converts rate-adjusted units back to raw: scaled * 1e18 / rate.
func FromScaled(scaled, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(scaled, RateScale)
	return out.Quo(out, rate)
}

func checkIndices(n, indexIn, indexOut int) error {
	if indexIn < 0 || indexIn >= n || indexOut < 0 || indexOut >= n || indexIn == indexOut {
		return ErrInvalidTokenIndex
	}
	return nil
}

func cloneBalances(balances []*big.Int) []*big.Int {
	out := make([]*big.Int, len(balances))
	for i, balance := range balances {
		if balance == nil {
			out[i] = new(big.Int)
			continue
		}
		out[i] = new(big.Int).Set(balance)
	}
	return out
}
