package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"resume-gateway/internal/observability/metrics"
)

func newMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Post("/api/ai/{capability}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	})
	return r
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	router := newMetricsRouter()
	counter := metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/ai/{capability}", "429")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/api/ai/summary", "/api/ai/review", "/api/ai/bullets"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}")))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	router := newMetricsRouter()
	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/8f1c2d", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/9931", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMetricsMiddleware_WithoutRouter(t *testing.T) {
	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "200")
	before := testutil.ToFloat64(counter)

	MetricsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMetricsHandler(t *testing.T) {
	metrics.RecordCapability("summary", metrics.OutcomeSuccess, 0)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ai_capability_requests_total")
}

func TestMetricsHandler_ExtraGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "extra_registry_gauge", Help: "test"})
	reg.MustRegister(gauge)
	gauge.Set(3)

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "extra_registry_gauge 3")
	assert.Contains(t, body, "http_requests_in_flight")
}
