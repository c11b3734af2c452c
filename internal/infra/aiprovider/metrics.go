package aiprovider

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder records provider call outcomes.
type MetricsRecorder interface {
	// RecordRequest records one upstream call with its outcome label and duration.
	RecordRequest(provider, outcome string, duration time.Duration)

	// RecordResponseLength records the length of a response in characters.
	RecordResponseLength(provider string, length int)
}

// Outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
	OutcomeRetryable    = "retryable_error"
	OutcomeCanceled     = "canceled"
	OutcomeUnconfigured = "unconfigured"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors.
type PrometheusMetrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	responseLength *prometheus.HistogramVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// NewPrometheusMetrics returns the process-wide recorder registered with the
// default registry. Repeated calls return the same instance.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = newPrometheusMetrics(prometheus.DefaultRegisterer)
	})
	return prometheusMetricsInstance
}

// NewPrometheusMetricsWithRegistry registers a fresh recorder with reg.
func NewPrometheusMetricsWithRegistry(reg prometheus.Registerer) *PrometheusMetrics {
	return newPrometheusMetrics(reg)
}

func newPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_provider_requests_total",
			Help: "Total upstream AI provider requests by outcome",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_provider_request_duration_seconds",
			Help:    "Upstream AI provider request latency",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"provider"}),
		responseLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_provider_response_length_characters",
			Help:    "Distribution of AI response lengths in characters (Unicode runes)",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}, []string{"provider"}),
	}

	m.requests = registerOrExisting(reg, m.requests)
	m.duration = registerOrExisting(reg, m.duration)
	m.responseLength = registerOrExisting(reg, m.responseLength)
	return m
}

// registerOrExisting registers c, or returns the collector already registered
// under the same descriptor.
func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// RecordRequest implements MetricsRecorder.
func (p *PrometheusMetrics) RecordRequest(provider, outcome string, duration time.Duration) {
	p.requests.WithLabelValues(provider, outcome).Inc()
	p.duration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordResponseLength implements MetricsRecorder.
func (p *PrometheusMetrics) RecordResponseLength(provider string, length int) {
	p.responseLength.WithLabelValues(provider).Observe(float64(length))
}

// NoOpMetrics discards all measurements.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordRequest(string, string, time.Duration) {}
func (NoOpMetrics) RecordResponseLength(string, int)            {}
