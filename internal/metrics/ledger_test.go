package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewLedger(reg)
	require.NoError(t, err)

	m.ObserveEvent("swap", "applied")
	m.ObserveEvent("swap", "applied")
	m.ObserveEvent("swap", "ignored")
	m.ObserveRateFailure()
	m.ObservePool("A", big.NewInt(1500), big.NewInt(-7))
	m.ObserveBlock(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("swap", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateFailures))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.balances.WithLabelValues("A")))
	assert.Equal(t, -7.0, testutil.ToFloat64(m.deviations.WithLabelValues("A")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.lastBlock))

	_, err = NewLedger(reg)
	require.Error(t, err)
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	m.ObserveEvent("swap", "applied")
	m.ObservePool("A", big.NewInt(1), nil)
	m.ObserveFairValueSkipped("")
}
