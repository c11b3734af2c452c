// Package http holds the gateway's cross-cutting HTTP pieces: request logging,
// panic recovery, body limits, Prometheus metrics and the health endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"resume-gateway/internal/handler/http/respond"
	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/pkg/ratelimit"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// AIStatus is the view of the AI gateway the health checks need.
type AIStatus interface {
	ProviderConfigured() bool
	ProviderName() string
	BreakerState() circuitbreaker.State
}

// HealthHandler reports provider configuration, the provider circuit breaker
// and the quota store.
//
// An open breaker or an unreachable quota store is degraded, not unhealthy:
// the breaker recovers on its own and the quota store fails open. Only a
// missing provider makes the instance unhealthy.
type HealthHandler struct {
	AI      AIStatus
	Version string

	// RateLimitStore is nil when quotas are disabled.
	RateLimitStore ratelimit.Store
}

func (h *HealthHandler) check(ctx context.Context) HealthResponse {
	checks := map[string]CheckStatus{
		"ai_provider":     h.checkProvider(),
		"circuit_breaker": h.checkBreaker(),
	}
	if h.RateLimitStore != nil {
		checks["rate_limiter"] = h.checkRateLimiter(ctx)
	} else {
		checks["rate_limiter"] = CheckStatus{Status: statusHealthy, Message: "disabled"}
	}

	status := statusHealthy
	for _, c := range checks {
		if c.Status == statusUnhealthy {
			status = statusUnhealthy
			break
		}
		if c.Status == statusDegraded {
			status = statusDegraded
		}
	}

	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}
}

func (h *HealthHandler) checkProvider() CheckStatus {
	details := map[string]any{"provider": h.AI.ProviderName()}
	if !h.AI.ProviderConfigured() {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured", Details: details}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func (h *HealthHandler) checkBreaker() CheckStatus {
	state := h.AI.BreakerState()
	details := map[string]any{"state": state.String()}
	if state != circuitbreaker.StateClosed {
		return CheckStatus{Status: statusDegraded, Message: "AI provider calls are paused", Details: details}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	keys, err := h.RateLimitStore.KeyCount(ctx)
	if err != nil {
		slog.WarnContext(ctx, "health: rate limit store check failed", slog.String("error", err.Error()))
		return CheckStatus{Status: statusDegraded, Message: "store unreachable, quotas fail open"}
	}
	return CheckStatus{Status: statusHealthy, Details: map[string]any{"active_keys": keys}}
}

// ServeHTTP always answers 200 so that the report is readable while degraded.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, http.StatusOK, h.check(ctx))
}

// ReadyHandler answers 503 while the instance cannot serve capability calls.
type ReadyHandler struct {
	Health *HealthHandler
}

// ServeHTTP performs readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := h.Health.check(ctx)
	code := http.StatusOK
	if report.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, report)
}

// LiveHandler handles liveness probes.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
