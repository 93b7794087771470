package stable

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bi(t *testing.T, value string) *big.Int {
	t.Helper()
	out, ok := new(big.Int).SetString(value, 10)
	require.True(t, ok, "invalid int %s", value)
	return out
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), RateScale)
}

func TestComputeInvariantEmptyPool(t *testing.T) {
	d, err := ComputeInvariant(big.NewInt(1_000_000), []*big.Int{big.NewInt(0), big.NewInt(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Sign())
}

func TestComputeInvariantZeroBalance(t *testing.T) {
	_, err := ComputeInvariant(big.NewInt(1_000_000), []*big.Int{big.NewInt(0), big.NewInt(10)})
	require.ErrorIs(t, err, ErrZeroBalance)
}

func TestComputeInvariantInvalidAmp(t *testing.T) {
	_, err := ComputeInvariant(big.NewInt(0), []*big.Int{big.NewInt(1), big.NewInt(1)})
	require.ErrorIs(t, err, ErrInvalidAmplification)
}

func TestComputeInvariantKnownValues(t *testing.T) {
	cases := []struct {
		name     string
		amp      int64
		balances []string
		want     string
	}{
		{"small equal", 1_000_000, []string{"1000", "1000"}, "2000"},
		{"small skewed", 200_000, []string{"1000", "2000"}, "2999"},
		{"wide skew", 200_000, []string{"1000000000000000000000", "3000000000000000000000"}, "3996691453407454565842"},
		{"three tokens", 200_000, []string{"1000000000000000000000", "2000000000000000000000", "3000000000000000000000"}, "5996690543963657169377"},
		{"one wei against large", 1_000_000, []string{"1", "1000000000000000000000000000000"}, "1999999998667333333333"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			balances := make([]*big.Int, 0, len(tc.balances))
			for _, b := range tc.balances {
				balances = append(balances, bi(t, b))
			}
			d, err := ComputeInvariant(big.NewInt(tc.amp), balances)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.String())
		})
	}
}

func TestComputeInvariantEqualBalancesEqualsSum(t *testing.T) {
	x := ether(1_000_000)
	sum := new(big.Int).Lsh(x, 1)
	for _, amp := range []int64{1_000, 10_000, 1_000_000, 1_000_000_000} {
		d, err := ComputeInvariant(big.NewInt(amp), []*big.Int{x, x})
		require.NoError(t, err)
		assert.Equal(t, sum.String(), d.String(), "amp %d", amp)
	}
}

func TestComputeInvariantApproachesSumWithAmp(t *testing.T) {
	balances := []*big.Int{ether(1_000), ether(3_000)}
	sum := ether(4_000)

	var prev *big.Int
	for _, amp := range []int64{1_000, 10_000, 100_000, 1_000_000, 100_000_000} {
		d, err := ComputeInvariant(big.NewInt(amp), balances)
		require.NoError(t, err)
		assert.Equal(t, -1, d.Cmp(sum), "amp %d", amp)
		if prev != nil {
			assert.Equal(t, 1, d.Cmp(prev), "amp %d", amp)
		}
		prev = d
	}

	gap := new(big.Int).Sub(sum, prev)
	assert.Equal(t, "6666566668388857", gap.String())
}

func TestComputeInvariantDidNotConverge(t *testing.T) {
	balances := []*big.Int{
		bi(t, "5611179608850959915425701"),
		bi(t, "2411989452669119100974"),
	}
	_, err := ComputeInvariant(big.NewInt(1_000), balances)
	require.ErrorIs(t, err, ErrInvariantDidNotConverge)
	assert.NotErrorIs(t, err, ErrBalanceDidNotConverge)
}

func TestComputeBalanceRecoversBalances(t *testing.T) {
	amp := big.NewInt(200_000)
	balances := []*big.Int{ether(1_000), ether(3_000)}
	d, err := ComputeInvariant(amp, balances)
	require.NoError(t, err)

	b0, err := ComputeBalance(amp, balances, d, 0)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000001", b0.String())

	b1, err := ComputeBalance(amp, balances, d, 1)
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000000001", b1.String())
}

func TestComputeBalanceRejectsBadInput(t *testing.T) {
	amp := big.NewInt(200_000)
	balances := []*big.Int{ether(1), ether(1)}

	_, err := ComputeBalance(amp, balances, ether(2), 2)
	require.ErrorIs(t, err, ErrInvalidTokenIndex)

	_, err = ComputeBalance(amp, balances, big.NewInt(0), 0)
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestComputeBalanceDidNotConverge(t *testing.T) {
	// Newton steps roughly halve the first guess here and need ~300 of them.
	huge := new(big.Int).Lsh(big.NewInt(1), 600)
	balances := []*big.Int{huge, big.NewInt(1)}

	_, err := ComputeBalance(big.NewInt(1), balances, huge, 0)
	require.ErrorIs(t, err, ErrBalanceDidNotConverge)
	assert.NotErrorIs(t, err, ErrInvariantDidNotConverge)
}

func TestDivUp(t *testing.T) {
	assert.Equal(t, "0", divUp(big.NewInt(0), big.NewInt(7)).String())
	assert.Equal(t, "1", divUp(big.NewInt(7), big.NewInt(7)).String())
	assert.Equal(t, "2", divUp(big.NewInt(8), big.NewInt(7)).String())
	assert.Equal(t, "1", divUp(big.NewInt(1), big.NewInt(7)).String())
}
