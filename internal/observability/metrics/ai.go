package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capability outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeFallback      = "fallback"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeUnavailable   = "unavailable"
	OutcomeInvalid       = "invalid"
	OutcomeBreakerOpen   = "breaker_open"
	OutcomeFailed        = "failed"
	OutcomeCanceled      = "canceled"
)

var (
	// AICapabilityRequests counts capability calls by outcome. A fallback is a
	// completed call whose model output could not be parsed.
	AICapabilityRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_capability_requests_total",
			Help: "Total AI capability requests by outcome",
		},
		[]string{"capability", "outcome"},
	)

	AICapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_capability_duration_seconds",
			Help:    "AI capability latency including retries",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"capability"},
	)

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordCapability records one capability call.
func RecordCapability(capability, outcome string, duration time.Duration) {
	AICapabilityRequests.WithLabelValues(capability, outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeFallback {
		AICapabilityDuration.WithLabelValues(capability).Observe(duration.Seconds())
	}
}

// RecordBreakerTransition records a breaker transition and its new state.
// state is the numeric value of the new state.
func RecordBreakerTransition(name, from, to string, state int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
