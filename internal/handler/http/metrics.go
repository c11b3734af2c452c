package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resume-gateway/internal/handler/http/responsewriter"
	"resume-gateway/internal/observability/metrics"
)

// unmatchedRoute labels requests that matched no route, so that arbitrary
// paths cannot create label values.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request count, duration and sizes labelled by the
// chi route pattern. It must be installed on the chi router with Use.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := responsewriter.Wrap(w)
		start := time.Now()
		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(
			r.Method,
			routePattern(r),
			strconv.Itoa(wrapped.StatusCode()),
			time.Since(start),
			int(r.ContentLength),
			wrapped.BytesWritten(),
		)
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
// It serves the default registry plus any extra registries, such as the one
// owned by the rate limiter.
func MetricsHandler(extra ...prometheus.Gatherer) http.Handler {
	if len(extra) == 0 {
		return promhttp.Handler()
	}
	gatherers := append(prometheus.Gatherers{prometheus.DefaultGatherer}, extra...)
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
	)
}
