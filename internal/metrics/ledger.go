package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger exposes replay progress and the tracked pool ledger.
type Ledger struct {
	events         *prometheus.CounterVec
	rateFailures   prometheus.Counter
	fairValueSkips *prometheus.CounterVec
	balances       *prometheus.GaugeVec
	deviations     *prometheus.GaugeVec
	lastBlock      prometheus.Gauge
}

// NewLedger builds the collectors and registers them on reg when non-nil.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Vault events seen by the ledger processor by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rate_read_failures_total",
			Help: "Failed rate provider reads.",
		}),
		fairValueSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_fair_value_skipped_total",
			Help: "Swaps processed without a fair value by reason.",
		}, []string{"reason"}),
		balances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_pool_balance",
			Help: "Raw pool balance per tracked asset (lossy float).",
		}, []string{"asset"}),
		deviations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_pool_accumulated_deviation",
			Help: "Accumulated signed deviation per tracked asset (lossy float).",
		}, []string{"asset"}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_last_block",
			Help: "Block number of the last committed event.",
		}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.events,
			m.rateFailures,
			m.fairValueSkips,
			m.balances,
			m.deviations,
			m.lastBlock,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Ledger) ObserveEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}

func (m *Ledger) ObserveRateFailure() {
	if m == nil {
		return
	}
	m.rateFailures.Inc()
}

func (m *Ledger) ObserveFairValueSkipped(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.fairValueSkips.WithLabelValues(reason).Inc()
}

// ObservePool publishes the ledger values of a committed pool state.
func (m *Ledger) ObservePool(asset string, balance, deviation *big.Int) {
	if m == nil {
		return
	}
	m.balances.WithLabelValues(asset).Set(toFloat(balance))
	m.deviations.WithLabelValues(asset).Set(toFloat(deviation))
}

func (m *Ledger) ObserveBlock(block uint64) {
	if m == nil {
		return
	}
	m.lastBlock.Set(float64(block))
}

func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
