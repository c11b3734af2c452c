// Package retry re-invokes failing operations with exponential backoff.
//
// Only transient failures are retried. IsRetryable is the single place that
// decides what transient means: typed errors first, then a case-insensitive
// match of the error message against a list of markers for clients that only
// report failures as text.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// DefaultMarkers are matched against error messages when the error carries no type information.
var DefaultMarkers = []string{
	"429",
	"rate limit",
	"503",
	"service unavailable",
	"timeout",
	"connection reset",
	"econnreset",
	"etimedout",
	"resource_exhausted",
	"resource exhausted",
}

// ErrExhausted is matched by errors.Is when every attempt failed with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// Markers are the message fragments that mark an untyped error as transient.
	Markers []string

	// JitterFraction adds up to this fraction of the delay as random jitter (0.0 to 1.0).
	// Zero keeps delays deterministic.
	JitterFraction float64

	// Sleep waits for d or until ctx is done. Defaults to a timer; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns 3 attempts starting at 1s and capped at 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Markers:      DefaultMarkers,
	}
}

// AIAPIConfig returns the configuration for interactive AI capability calls.
func AIAPIConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     5 * time.Second,
		Markers:      DefaultMarkers,
	}
}

// HeavyAIAPIConfig returns the configuration for long AI operations such as a full review.
// They back off longer because a retry repeats a large, slow generation.
func HeavyAIAPIConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Markers:      DefaultMarkers,
	}
}

// Delay returns the wait before the given attempt (attempt >= 2):
// min(InitialDelay * 2^(attempt-2), MaxDelay), without jitter.
func Delay(cfg Config, attempt int) time.Duration {
	if attempt < 2 || cfg.InitialDelay <= 0 {
		return 0
	}
	delay := cfg.InitialDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}

// WithBackoff runs fn until it succeeds, fails with a non-retryable error,
// runs out of attempts, or ctx is done.
//
// A non-retryable error is returned as is, immediately. When attempts run out
// the last error is returned wrapped so that it matches both ErrExhausted and
// the original error. Cancellation of ctx during a delay returns ctx.Err().
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Markers == nil {
		cfg.Markers = DefaultMarkers
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := addJitter(Delay(cfg, attempt), cfg.JitterFraction)
			slog.Warn("operation failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", cfg.MaxAttempts),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()))

			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(lastErr, cfg.Markers) {
			return lastErr
		}
	}

	return &exhaustedError{attempts: cfg.MaxAttempts, err: lastErr}
}

// WithBackoffValue is WithBackoff for functions that return a value.
func WithBackoffValue[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := WithBackoff(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

type exhaustedError struct {
	attempts int
	err      error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.err}
}

// Classifier is implemented by errors that know whether they are transient.
// A Classifier anywhere in the error chain overrides marker matching.
type Classifier interface {
	Retryable() bool
}

// IsRetryable reports whether err is a transient failure worth another attempt.
//
// Cancellation and the caller's own deadline are never retried. Typed information wins: a Classifier in the
// chain, a network timeout, or a connection reset/refused/timed out syscall
// error. Untyped errors are retried when their message contains one of markers,
// compared case-insensitively.
func IsRetryable(err error, markers []string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var c Classifier
	if errors.As(err, &c) {
		return c.Retryable()
	}

	// context.DeadlineExceeded also satisfies net.Error with Timeout() true,
	// so the caller's deadline must be checked first.
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	return matchesMarker(err.Error(), markers)
}

func matchesMarker(msg string, markers []string) bool {
	msg = strings.ToLower(msg)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(msg, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// HTTPError represents a failed HTTP exchange with an upstream service.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable implements Classifier.
func (e *HTTPError) Retryable() bool {
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus reports whether an HTTP status signals a transient condition:
// 408, 425, 429 and every 5xx except 501 Not Implemented.
func IsRetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests:
		return true
	case code == http.StatusNotImplemented:
		return false
	case code >= 500 && code < 600:
		return true
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
