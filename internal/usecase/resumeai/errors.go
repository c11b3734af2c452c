package resumeai

import (
	"errors"
	"fmt"
	"math"
	"time"

	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/pkg/ratelimit"
)

var (
	// ErrUnauthorized is returned when a call carries no identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProviderUnavailable is returned when no API key is configured for the AI provider.
	ErrProviderUnavailable = errors.New("ai provider not configured")

	// ErrBreakerOpen is returned while the provider circuit breaker rejects calls.
	// It matches circuitbreaker.ErrOpen with errors.Is.
	ErrBreakerOpen = fmt.Errorf("ai service paused: %w", circuitbreaker.ErrOpen)

	// ErrProviderFailed wraps provider errors that survived the retry policy.
	ErrProviderFailed = errors.New("ai provider request failed")
)

// ValidationError reports a missing or unusable request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func required(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// QuotaExceededError is returned when the caller used up the quota of the capability's bucket.
type QuotaExceededError struct {
	Decision *ratelimit.Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for bucket %s, retry in %ds", e.Decision.Bucket, e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the whole seconds until the window resets.
func (e *QuotaExceededError) RetryAfterSeconds() int {
	return e.Decision.ResetInSeconds()
}

// BreakerOpenError is returned while the provider circuit breaker rejects
// calls. It matches ErrBreakerOpen with errors.Is.
type BreakerOpenError struct {
	// RetryIn is the time until the breaker admits its next probe.
	RetryIn time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("%s, retry in %ds", ErrBreakerOpen, e.RetryAfterSeconds())
}

func (e *BreakerOpenError) Unwrap() error { return ErrBreakerOpen }

// RetryAfterSeconds returns RetryIn in whole seconds, rounded up, and at least one.
func (e *BreakerOpenError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryIn.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
