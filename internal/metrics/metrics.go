// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	BatchDuration   prometheus.Histogram
	BatchSize       prometheus.Gauge
	GateResults     *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	OutcomeQuality  *prometheus.CounterVec
	TrackerRetries  prometheus.Counter
	SnapshotAge     prometheus.Gauge
	SnapshotSamples prometheus.Gauge
}

// New creates and registers the engine collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alphagate_batch_duration_seconds",
			Help:    "Wall time of one evaluation batch.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		BatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alphagate_batch_instruments",
			Help: "Instruments evaluated in the last batch.",
		}),
		GateResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphagate_gate_results_total",
			Help: "Gate evaluations by gate and result.",
		}, []string{"gate", "result"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphagate_decisions_total",
			Help: "Decisions emitted by action.",
		}, []string{"action"}),
		OutcomeQuality: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphagate_outcome_quality_total",
			Help: "Completed outcome ratings by quality.",
		}, []string{"quality"}),
		TrackerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alphagate_tracker_retries_total",
			Help: "Outcome updates deferred by missing price data.",
		}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alphagate_calibration_snapshot_age_seconds",
			Help: "Age of the published calibration snapshot.",
		}),
		SnapshotSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alphagate_calibration_snapshot_samples",
			Help: "Samples backing the published calibration snapshot.",
		}),
	}

	m.registry.MustRegister(
		m.BatchDuration, m.BatchSize, m.GateResults, m.Decisions,
		m.OutcomeQuality, m.TrackerRetries, m.SnapshotAge, m.SnapshotSamples,
	)
	return m
}

// Registry returns the registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGate records a single gate result.
func (m *Metrics) ObserveGate(gate string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	m.GateResults.WithLabelValues(gate, result).Inc()
}
