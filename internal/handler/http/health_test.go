package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/pkg/ratelimit"
)

type stubAI struct {
	configured bool
	state      circuitbreaker.State
}

func (s stubAI) ProviderConfigured() bool           { return s.configured }
func (s stubAI) ProviderName() string               { return "claude" }
func (s stubAI) BreakerState() circuitbreaker.State { return s.state }

type failingStore struct{ ratelimit.Store }

func (failingStore) KeyCount(context.Context) (int, error) {
	return 0, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	store := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{MaxKeys: 10})
	_, _, err := store.Increment(context.Background(), "ai:user-1", 10, time.Minute, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name       string
		ai         stubAI
		store      ratelimit.Store
		wantStatus string
		wantReady  int
	}{
		{"healthy", stubAI{configured: true}, store, statusHealthy, http.StatusOK},
		{"quotas disabled", stubAI{configured: true}, nil, statusHealthy, http.StatusOK},
		{"breaker open", stubAI{configured: true, state: circuitbreaker.StateOpen}, store, statusDegraded, http.StatusOK},
		{"store down", stubAI{configured: true}, failingStore{}, statusDegraded, http.StatusOK},
		{"provider missing", stubAI{configured: false}, store, statusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{AI: tt.ai, Version: "v1.2.3", RateLimitStore: tt.store}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			resp := decodeHealth(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "v1.2.3", resp.Version)
			assert.Contains(t, resp.Checks, "circuit_breaker")

			rec = httptest.NewRecorder()
			(&ReadyHandler{Health: h}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantReady, rec.Code)
		})
	}
}

func TestHealthHandler_Details(t *testing.T) {
	store := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{MaxKeys: 10})
	_, _, err := store.Increment(context.Background(), "ai:user-1", 10, time.Minute, time.Now())
	require.NoError(t, err)

	h := &HealthHandler{AI: stubAI{configured: true, state: circuitbreaker.StateHalfOpen}, RateLimitStore: store}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decodeHealth(t, rec)
	assert.Equal(t, "half-open", resp.Checks["circuit_breaker"].Details["state"])
	assert.Equal(t, "claude", resp.Checks["ai_provider"].Details["provider"])
	assert.EqualValues(t, 1, resp.Checks["rate_limiter"].Details["active_keys"])
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LiveHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}
