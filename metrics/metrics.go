// Package metrics exposes Prometheus counters and histograms around
// Acquire decisions: a custom registry per instance for test isolation,
// label-vector counters for outcomes, and a histogram for the one
// suspension point the decision engine has (the store round trip).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms recorded around Acquire.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal  *prometheus.CounterVec
	evalDuration    *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	remainingTokens *prometheus.GaugeVec
}

// New creates a Metrics instance backed by its own registry, so multiple
// RateLimiters (e.g. in tests) never collide on metric names.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Total Acquire decisions by resource and outcome (allowed/denied).",
		},
		[]string{"resource", "outcome"},
	)

	evalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratelimit_eval_duration_seconds",
			Help:    "Duration of the sliding-window store round trip.",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"resource"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_errors_total",
			Help: "Total Acquire errors by taxonomy kind (invalid_argument/unavailable/deadline_exceeded/internal).",
		},
		[]string{"kind"},
	)

	remainingTokens := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_remaining_tokens",
			Help: "Units remaining in the current window after the last decision, by resource.",
		},
		[]string{"resource"},
	)

	registry.MustRegister(decisionsTotal, evalDuration, errorsTotal, remainingTokens)

	return &Metrics{
		registry:        registry,
		decisionsTotal:  decisionsTotal,
		evalDuration:    evalDuration,
		errorsTotal:     errorsTotal,
		remainingTokens: remainingTokens,
	}
}

// Registry returns the Prometheus registry, suitable for
// promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision records the outcome of one Acquire call.
func (m *Metrics) RecordDecision(resource string, allowed bool, remaining int64) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisionsTotal.WithLabelValues(resource, outcome).Inc()
	m.remainingTokens.WithLabelValues(resource).Set(float64(remaining))
}

// RecordEvalDuration records how long the store round trip took.
func (m *Metrics) RecordEvalDuration(resource string, d time.Duration) {
	m.evalDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// RecordError records an Acquire error by its rlerrors taxonomy kind
// ("invalid_argument", "unavailable", "deadline_exceeded", "internal").
func (m *Metrics) RecordError(kind string) {
	m.errorsTotal.WithLabelValues(kind).Inc()
}
