package postgres

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	values := []string{"0", "-999000000000999", "1001000000000000000000000"}
	for _, value := range values {
		v, ok := new(big.Int).SetString(value, 10)
		require.True(t, ok)
		parsed, err := parseNumeric(numeric(v))
		require.NoError(t, err)
		assert.Equal(t, value, parsed.String())
	}

	assert.Equal(t, "0", numeric(nil))
	assert.Nil(t, nullableNumeric(nil))
	assert.Equal(t, "5", *nullableNumeric(big.NewInt(5)))

	_, err := parseNumeric("1.5")
	require.Error(t, err)
}
