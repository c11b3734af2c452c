package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authRequestsTotal counts bearer token checks by result.
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total bearer token checks by result",
		},
		[]string{"result"}, // success | missing | expired | invalid
	)

	authDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_duration_seconds",
			Help:    "Bearer token verification duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)

func recordAuthRequest(result string) {
	authRequestsTotal.WithLabelValues(result).Inc()
}

func recordAuthDuration(d time.Duration) {
	authDuration.Observe(d.Seconds())
}
