package stable

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skewedPool(t *testing.T) (*big.Int, []*big.Int, *big.Int) {
	t.Helper()
	amp := big.NewInt(200_000)
	balances := []*big.Int{ether(1_000), ether(3_000)}
	d, err := ComputeInvariant(amp, balances)
	require.NoError(t, err)
	return amp, balances, d
}

func TestOutGivenExactInKnownValue(t *testing.T) {
	amp, balances, d := skewedPool(t)

	out, err := OutGivenExactIn(amp, balances, 0, 1, ether(10), d)
	require.NoError(t, err)
	assert.Equal(t, "10087258188558320207", out.String())

	in, err := InGivenExactOut(amp, balances, 0, 1, ether(10), d)
	require.NoError(t, err)
	assert.Equal(t, "9913488041698871440", in.String())
}

func TestOutGivenExactInDoesNotMutateBalances(t *testing.T) {
	amp, balances, d := skewedPool(t)
	before := []string{balances[0].String(), balances[1].String()}

	_, err := OutGivenExactIn(amp, balances, 0, 1, ether(10), d)
	require.NoError(t, err)
	_, err = InGivenExactOut(amp, balances, 0, 1, ether(10), d)
	require.NoError(t, err)

	assert.Equal(t, before, []string{balances[0].String(), balances[1].String()})
}

func TestOutGivenExactInDustRoundsBelowZero(t *testing.T) {
	amp, balances, d := skewedPool(t)

	out, err := OutGivenExactIn(amp, balances, 0, 1, big.NewInt(1), d)
	require.NoError(t, err)
	assert.Equal(t, "-2", out.String())
}

func TestRoundTripFavorsPool(t *testing.T) {
	amp, balances, d := skewedPool(t)

	amounts := []*big.Int{
		big.NewInt(1_000_000),
		ether(1),
		ether(10),
		ether(500),
	}
	for _, amountIn := range amounts {
		out, err := OutGivenExactIn(amp, balances, 0, 1, amountIn, d)
		require.NoError(t, err)
		require.Equal(t, 1, out.Sign())

		back, err := InGivenExactOut(amp, balances, 0, 1, out, d)
		require.NoError(t, err)
		assert.LessOrEqual(t, back.Cmp(amountIn), 0, "amount in %s returned %s", amountIn, back)
	}
}

func TestOutGivenExactInMonotonicInAmount(t *testing.T) {
	amp, balances, d := skewedPool(t)

	prev := new(big.Int)
	step := ether(25)
	amountIn := new(big.Int)
	for i := 0; i < 40; i++ {
		amountIn.Add(amountIn, step)
		out, err := OutGivenExactIn(amp, balances, 0, 1, amountIn, d)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Cmp(prev), 0, "amount in %s", amountIn)
		prev = out
	}
}

func TestOutGivenExactInDeeperOutputSide(t *testing.T) {
	amp := big.NewInt(200_000)
	want := []string{
		"10087258188558320207",
		"10143613047852156675",
		"10211360238396852855",
	}
	for i, depth := range []int64{3_000, 4_000, 5_000} {
		balances := []*big.Int{ether(1_000), ether(depth)}
		d, err := ComputeInvariant(amp, balances)
		require.NoError(t, err)
		out, err := OutGivenExactIn(amp, balances, 0, 1, ether(10), d)
		require.NoError(t, err)
		assert.Equal(t, want[i], out.String())
	}
}

func TestInGivenExactOutInsufficientLiquidity(t *testing.T) {
	amp, balances, d := skewedPool(t)

	_, err := InGivenExactOut(amp, balances, 0, 1, ether(3_000), d)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.NotErrorIs(t, err, ErrBalanceDidNotConverge)

	_, err = InGivenExactOut(amp, balances, 0, 1, ether(4_000), d)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestQuoteInvalidIndices(t *testing.T) {
	amp, balances, d := skewedPool(t)

	_, err := OutGivenExactIn(amp, balances, 1, 1, ether(1), d)
	require.ErrorIs(t, err, ErrInvalidTokenIndex)
	_, err = InGivenExactOut(amp, balances, 0, 2, ether(1), d)
	require.ErrorIs(t, err, ErrInvalidTokenIndex)
}

func TestOutGivenExactInWithRatesBalancedPool(t *testing.T) {
	balance := ether(1_000_000)
	amountIn := ether(1_000)

	out, err := OutGivenExactInWithRates(big.NewInt(1_000_000_000), 0, 1, amountIn, balance, balance, RateScale, RateScale)
	require.NoError(t, err)
	assert.Equal(t, "999999999000000000999", out.String())

	out, err = OutGivenExactInWithRates(big.NewInt(1_000_000), 0, 1, amountIn, balance, balance, RateScale, RateScale)
	require.NoError(t, err)
	assert.Equal(t, "999999000999001997001", out.String())

	tolerance := new(big.Int).Quo(amountIn, big.NewInt(1_000_000))
	shortfall := new(big.Int).Sub(amountIn, out)
	assert.Equal(t, 1, shortfall.Sign())
	assert.Equal(t, -1, shortfall.Cmp(tolerance))
}

func TestOutGivenExactInWithRatesScaling(t *testing.T) {
	amp := big.NewInt(1_000_000)
	rateA := bi(t, "1100000000000000000")
	rateB := bi(t, "1150000000000000000")
	balanceA := ether(500_000)
	balanceB := ether(400_000)

	aToB, err := OutGivenExactInWithRates(amp, 0, 1, ether(100), balanceA, balanceB, rateA, rateB)
	require.NoError(t, err)
	assert.Equal(t, "95634850547292329191", aToB.String())

	bToA, err := OutGivenExactInWithRates(amp, 1, 0, ether(100), balanceA, balanceB, rateA, rateB)
	require.NoError(t, err)
	assert.Equal(t, "104564343185381026655", bToA.String())

	assert.Equal(t, "500000000000000000000000", balanceA.String())
	assert.Equal(t, "400000000000000000000000", balanceB.String())
}

func TestOutGivenExactInWithRatesEmptyPool(t *testing.T) {
	zero := big.NewInt(0)
	_, err := OutGivenExactInWithRates(big.NewInt(1_000_000), 0, 1, ether(1), zero, zero, RateScale, RateScale)
	require.ErrorIs(t, err, ErrEmptyPool)

	_, err = OutGivenExactInWithRates(big.NewInt(1_000_000), 0, 1, ether(1), ether(1), zero, RateScale, RateScale)
	require.ErrorIs(t, err, ErrZeroBalance)
}

func TestOutGivenExactInWithRatesInvalidRate(t *testing.T) {
	_, err := OutGivenExactInWithRates(big.NewInt(1_000_000), 0, 1, ether(1), ether(1), ether(1), big.NewInt(0), RateScale)
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestScaledConversions(t *testing.T) {
	rate := bi(t, "1500000000000000000")
	assert.Equal(t, "15", ToScaled(big.NewInt(10), rate).String())
	assert.Equal(t, "10", FromScaled(big.NewInt(15), rate).String())
	assert.Equal(t, "0", ToScaled(nil, rate).String())
}
