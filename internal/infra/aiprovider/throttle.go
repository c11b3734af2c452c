package aiprovider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttled paces outbound calls to a provider with a token bucket, so a
// burst of gateway traffic does not exceed the provider account's request rate.
type Throttled struct {
	next    Provider
	limiter *rate.Limiter
}

// NewThrottled wraps next with a limit of requestsPerSecond and the given burst.
// A non-positive rate disables pacing.
func NewThrottled(next Provider, requestsPerSecond float64, burst int) *Throttled {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Name implements Provider.
func (t *Throttled) Name() string { return t.next.Name() }

// Available delegates to the wrapped provider.
func (t *Throttled) Available() bool { return Available(t.next) }

// Generate waits for a token, then calls the wrapped provider. A wait that
// cannot finish before the caller's deadline returns at once with an error
// matching context.DeadlineExceeded; the provider is not called.
func (t *Throttled) Generate(ctx context.Context, prompt string) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", fmt.Errorf("%s request aborted: %w", t.next.Name(), err)
	}
	return t.next.Generate(ctx, prompt)
}

func (t *Throttled) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := t.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return context.DeadlineExceeded
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
