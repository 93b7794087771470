package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	require.NoError(t, err)
	assert.Equal(t, []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}, got)

	got, err = SplitRange(100, 104, 2)
	require.NoError(t, err)
	assert.Equal(t, BlockRange{From: 104, To: 104}, got[len(got)-1])
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []BlockRange{{From: 5, To: 5}}, got)
}

func TestSplitRangeInvalid(t *testing.T) {
	_, err := SplitRange(10, 9, 1)
	require.Error(t, err)
	_, err = SplitRange(1, 10, 0)
	require.Error(t, err)
}

func TestSafeHead(t *testing.T) {
	head, ok := SafeHead(100, 12)
	assert.True(t, ok)
	assert.Equal(t, uint64(88), head)

	_, ok = SafeHead(5, 12)
	assert.False(t, ok)
}
