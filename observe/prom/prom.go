package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-fanin/coordinator"
)

const namespace = "fanin"

// Metrics implements coordinator.Observer on top of Prometheus collectors.
type Metrics struct {
	// dispatches
	dispatchesStarted *prometheus.CounterVec
	dispatchesSettled *prometheus.CounterVec
	dispatchDuration  *prometheus.HistogramVec
	inFlight          prometheus.Gauge

	// units
	unitsSettled *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_started_total",
			Help:      "Dispatches accepted, by policy.",
		}, []string{"policy"}),
		dispatchesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_settled_total",
			Help:      "Dispatches settled, by policy and result.",
		}, []string{"policy", "result"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from fan-out to full settlement.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "units_in_flight",
			Help:      "Units dispatched and not yet settled.",
		}),
		unitsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_settled_total",
			Help:      "Unit outcomes, by policy and outcome.",
		}, []string{"policy", "outcome"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Latency of single unit invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
	}
	for _, c := range []prometheus.Collector{
		m.dispatchesStarted, m.dispatchesSettled, m.dispatchDuration,
		m.inFlight, m.unitsSettled, m.unitDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DispatchStarted counts the dispatch and its units as in flight.
func (m *Metrics) DispatchStarted(_ context.Context, mode coordinator.Mode, units int) {
	m.dispatchesStarted.WithLabelValues(mode.String()).Inc()
	m.inFlight.Add(float64(units))
}

// UnitSettled records a unit outcome. Under FailPartial and FailSoft a
// failure is counted as "absorbed", under FailFast as "failed".
func (m *Metrics) UnitSettled(_ context.Context, mode coordinator.Mode, _ string, dur time.Duration, err error) {
	m.inFlight.Dec()
	m.unitsSettled.WithLabelValues(mode.String(), unitOutcome(mode, err)).Inc()
	m.unitDuration.WithLabelValues(mode.String()).Observe(dur.Seconds())
}

// DispatchSettled records the dispatch result and its join latency.
func (m *Metrics) DispatchSettled(_ context.Context, mode coordinator.Mode, wait time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.dispatchesSettled.WithLabelValues(mode.String(), result).Inc()
	m.dispatchDuration.WithLabelValues(mode.String()).Observe(wait.Seconds())
}

func unitOutcome(mode coordinator.Mode, err error) string {
	switch {
	case err == nil:
		return "success"
	case mode == coordinator.ModeFailFast:
		return "failed"
	default:
		return "absorbed"
	}
}
