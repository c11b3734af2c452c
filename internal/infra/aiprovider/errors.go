package aiprovider

import (
	"context"
	"errors"
	"fmt"

	"resume-gateway/internal/resilience/retry"
)

// ProviderError is a failure reported by an upstream AI API or its transport.
// StatusCode is zero when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable implements retry.Classifier. The HTTP status decides when there is
// one; otherwise the transport error is classified.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode > 0 {
		return retry.IsRetryableStatus(e.StatusCode)
	}
	if e.Err != nil {
		return retry.IsRetryable(e.Err, retry.DefaultMarkers)
	}
	return retry.IsRetryable(errors.New(e.Message), retry.DefaultMarkers)
}

// ErrRequestTimeout marks an upstream request cut off by the per-request timeout
// while the caller was still waiting. It is transient.
var ErrRequestTimeout = errors.New("ai provider request timeout")

// transportError converts an error that carries no HTTP status. Cancellation
// by the caller is passed through unchanged so it is never retried or counted
// against the provider.
func transportError(ctx, reqCtx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s request aborted: %w", provider, ctx.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Message: ErrRequestTimeout.Error(), Err: ErrRequestTimeout}
	}
	return &ProviderError{Provider: provider, Message: err.Error(), Err: err}
}
