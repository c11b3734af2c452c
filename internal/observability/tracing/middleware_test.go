package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder points the package tracer at an in-memory exporter.
func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer = tp.Tracer(ServiceName)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTextMapPropagator(prevProp)
		tracer = otel.Tracer(ServiceName)
	})
	return exporter
}

func attrs(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		m[kv.Key] = kv.Value
	}
	return m
}

func routed(status int) http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/api/ai/{capability}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestMiddleware_NamesSpanAfterRoute(t *testing.T) {
	exporter := installRecorder(t)

	rec := httptest.NewRecorder()
	routed(http.StatusOK).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/summary", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/ai/{capability}", span.Name)

	a := attrs(span)
	assert.Equal(t, "/api/ai/{capability}", a["http.route"].AsString())
	assert.Equal(t, "/api/ai/summary", a["http.path"].AsString())
	assert.EqualValues(t, 200, a["http.status_code"].AsInt64())
	assert.Equal(t, span.SpanContext.TraceID().String(), rec.Header().Get(TraceIDHeader))
}

func TestMiddleware_PropagatesTraceContext(t *testing.T) {
	exporter := installRecorder(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/review", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	routed(http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}

func TestMiddleware_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"too many requests", http.StatusTooManyRequests, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := installRecorder(t)

			routed(tt.status).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ai/bullets", nil))

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			_, marked := attrs(spans[0])["error"]
			assert.Equal(t, tt.wantError, marked)
			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status.Code)
			}
		})
	}
}

func TestMiddleware_UnroutedKeepsPathName(t *testing.T) {
	exporter := installRecorder(t)

	Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name)
}

func TestSetup_WithoutEndpoint(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	shutdown, err := Setup(context.Background(), Config{Version: "test"})
	require.NoError(t, err)

	_, span := otel.Tracer("setup-test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
