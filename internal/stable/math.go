package stable

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// AmpPrecision is the fixed-point scale of the amplification parameter.
	AmpPrecision = 1000

	// MaxIterations bounds both Newton-Raphson loops.
	MaxIterations = 255
)

var (
	ErrInvariantDidNotConverge = errors.New("stable invariant did not converge")
	ErrBalanceDidNotConverge   = errors.New("stable balance did not converge")
	ErrInsufficientLiquidity   = errors.New("amount out is not below pool balance")
	ErrInvalidTokenIndex       = errors.New("invalid token index")
	ErrInvalidAmplification    = errors.New("amplification must be positive")
	ErrZeroBalance             = errors.New("zero balance in non-empty pool")
	ErrEmptyPool               = errors.New("pool is empty")
	ErrNegativeAmount          = errors.New("negative amount")
)

var (
	bigOne       = big.NewInt(1)
	ampPrecision = big.NewInt(AmpPrecision)
)

// ComputeInvariant computes D from the balances, truncating every division.
//
// amp is the amplification coefficient scaled by AmpPrecision; it is
// multiplied by the number of tokens here.
func ComputeInvariant(amp *big.Int, balances []*big.Int) (*big.Int, error) {
	if amp == nil || amp.Sign() <= 0 {
		return nil, ErrInvalidAmplification
	}
	if len(balances) == 0 {
		return nil, fmt.Errorf("no balances")
	}

	sum := new(big.Int)
	for _, balance := range balances {
		if balance == nil || balance.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
		sum.Add(sum, balance)
	}
	if sum.Sign() == 0 {
		return new(big.Int), nil
	}
	for _, balance := range balances {
		if balance.Sign() == 0 {
			return nil, ErrZeroBalance
		}
	}

	numTokens := big.NewInt(int64(len(balances)))
	ampTimesTotal := new(big.Int).Mul(amp, numTokens)

	ampSum := new(big.Int).Mul(ampTimesTotal, sum)
	ampSum.Quo(ampSum, ampPrecision)
	ampLessOne := new(big.Int).Sub(ampTimesTotal, ampPrecision)
	numTokensPlusOne := big.NewInt(int64(len(balances) + 1))

	invariant := new(big.Int).Set(sum)
	prevInvariant := new(big.Int)
	dP := new(big.Int)
	num := new(big.Int)
	den := new(big.Int)
	tmp := new(big.Int)

	for i := 0; i < MaxIterations; i++ {
		dP.Set(invariant)
		for _, balance := range balances {
			dP.Mul(dP, invariant)
			dP.Quo(dP, tmp.Mul(balance, numTokens))
		}

		prevInvariant.Set(invariant)

		num.Mul(dP, numTokens)
		num.Add(num, ampSum)
		num.Mul(num, invariant)

		den.Mul(ampLessOne, invariant)
		den.Quo(den, ampPrecision)
		den.Add(den, tmp.Mul(numTokensPlusOne, dP))
		if den.Sign() <= 0 {
			return nil, ErrInvariantDidNotConverge
		}

		invariant.Quo(num, den)

		if withinOne(invariant, prevInvariant) {
			return invariant, nil
		}
	}

	return nil, ErrInvariantDidNotConverge
}

// ComputeBalance solves for the balance at tokenIndex given the invariant and
// every other balance. All divisions round up so the result favors the pool.
func ComputeBalance(amp *big.Int, balances []*big.Int, invariant *big.Int, tokenIndex int) (*big.Int, error) {
	if amp == nil || amp.Sign() <= 0 {
		return nil, ErrInvalidAmplification
	}
	if tokenIndex < 0 || tokenIndex >= len(balances) {
		return nil, ErrInvalidTokenIndex
	}
	if invariant == nil || invariant.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	for _, balance := range balances {
		if balance == nil || balance.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
	}

	numTokens := big.NewInt(int64(len(balances)))
	ampTimesTotal := new(big.Int).Mul(amp, numTokens)

	sum := new(big.Int).Set(balances[0])
	pD := new(big.Int).Mul(balances[0], numTokens)
	for j := 1; j < len(balances); j++ {
		pD.Mul(pD, balances[j])
		pD.Mul(pD, numTokens)
		pD.Quo(pD, invariant)
		sum.Add(sum, balances[j])
	}
	sum.Sub(sum, balances[tokenIndex])

	inv2 := new(big.Int).Mul(invariant, invariant)

	cDen := new(big.Int).Mul(ampTimesTotal, pD)
	if cDen.Sign() == 0 {
		return nil, ErrZeroBalance
	}
	// The target balance is folded back into c by multiplying it out.
	c := divUp(new(big.Int).Mul(inv2, ampPrecision), cDen)
	c.Mul(c, balances[tokenIndex])

	b := new(big.Int).Mul(invariant, ampPrecision)
	b.Quo(b, ampTimesTotal)
	b.Add(b, sum)

	tokenBalance := divUp(new(big.Int).Add(inv2, c), new(big.Int).Add(invariant, b))
	prevTokenBalance := new(big.Int)
	num := new(big.Int)
	den := new(big.Int)

	for i := 0; i < MaxIterations; i++ {
		prevTokenBalance.Set(tokenBalance)

		num.Mul(tokenBalance, tokenBalance)
		num.Add(num, c)

		den.Lsh(tokenBalance, 1)
		den.Add(den, b)
		den.Sub(den, invariant)
		if den.Sign() <= 0 {
			return nil, ErrBalanceDidNotConverge
		}

		tokenBalance = divUp(num, den)

		if withinOne(tokenBalance, prevTokenBalance) {
			return tokenBalance, nil
		}
	}

	return nil, ErrBalanceDidNotConverge
}

// divUp returns ceil(a/b) for a >= 0 and b > 0.
func divUp(a, b *big.Int) *big.Int {
	if a.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Sub(a, bigOne)
	out.Quo(out, b)
	return out.Add(out, bigOne)
}

func withinOne(a, b *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(bigOne) <= 0
}
