package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics with Prometheus collectors.
//
// All collectors are registered on a private registry so tests and multiple
// limiter instances never collide. Expose it with promhttp.HandlerFor or
// gather it into the process registry with prometheus.Gatherers.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// requestsTotal counts quota checks by bucket and result ("allowed", "denied").
	requestsTotal *prometheus.CounterVec

	// checkDuration observes the latency of one Allow call.
	// Buckets cover in-memory checks (sub-millisecond) up to a slow Redis round trip.
	checkDuration *prometheus.HistogramVec

	// storeErrorsTotal counts fail-open decisions caused by store errors.
	storeErrorsTotal *prometheus.CounterVec

	activeKeys prometheus.Gauge

	cleanupRemovedTotal prometheus.Counter

	// guardState is 0 when the store guard is closed, 1 when open and 2 when half-open.
	guardState prometheus.Gauge
}

// NewPrometheusMetrics creates PrometheusMetrics on a new registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_rate_limit_requests_total",
				Help: "Total AI quota checks by bucket and result",
			},
			[]string{"bucket", "result"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_rate_limit_check_duration_seconds",
				Help:    "Duration of AI quota checks",
				Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"bucket"},
		),
		storeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_rate_limit_store_errors_total",
				Help: "Total quota checks admitted because the store failed",
			},
			[]string{"bucket"},
		),
		activeKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ai_rate_limit_active_keys",
			Help: "Current number of tracked quota keys",
		}),
		cleanupRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ai_rate_limit_cleanup_removed_total",
			Help: "Total expired quota entries removed by cleanup",
		}),
		guardState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ai_rate_limit_store_guard_state",
			Help: "Rate limit store guard state (0=closed, 1=open, 2=half-open)",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.checkDuration,
		m.storeErrorsTotal,
		m.activeKeys,
		m.cleanupRemovedTotal,
		m.guardState,
	)

	return m
}

// Registry returns the registry holding the rate limit collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAllowed implements Metrics.
func (m *PrometheusMetrics) RecordAllowed(bucket string) {
	m.requestsTotal.WithLabelValues(bucket, "allowed").Inc()
}

// RecordDenied implements Metrics.
func (m *PrometheusMetrics) RecordDenied(bucket string) {
	m.requestsTotal.WithLabelValues(bucket, "denied").Inc()
}

// RecordCheckDuration implements Metrics.
func (m *PrometheusMetrics) RecordCheckDuration(bucket string, duration time.Duration) {
	m.checkDuration.WithLabelValues(bucket).Observe(duration.Seconds())
}

// RecordStoreError implements Metrics.
func (m *PrometheusMetrics) RecordStoreError(bucket string) {
	m.storeErrorsTotal.WithLabelValues(bucket).Inc()
}

// SetActiveKeys implements Metrics.
func (m *PrometheusMetrics) SetActiveKeys(count int) {
	m.activeKeys.Set(float64(count))
}

// RecordCleanup implements Metrics.
func (m *PrometheusMetrics) RecordCleanup(removed int) {
	m.cleanupRemovedTotal.Add(float64(removed))
}

// RecordGuardState implements Metrics.
func (m *PrometheusMetrics) RecordGuardState(state string) {
	var v float64
	switch state {
	case "open":
		v = 1
	case "half-open":
		v = 2
	}
	m.guardState.Set(v)
}
