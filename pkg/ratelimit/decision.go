package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Decision is the result of one rate limit check.
//
// It carries everything a caller needs to answer the client: whether the
// request is admitted, how many requests remain, and when the window resets.
type Decision struct {
	// Key is the composite key the decision was made for (identity and bucket).
	Key string

	// Bucket is the quota bucket name (for example "ai" or "ai-review").
	Bucket string

	// Allowed reports whether the request is admitted.
	Allowed bool

	// Limit is the maximum number of requests in one window.
	Limit int

	// Remaining is the number of requests still available in the current window, never negative.
	Remaining int

	// ResetAt is the end of the current window.
	ResetAt time.Time

	// RetryAfter is ResetAt minus the decision time, never negative.
	RetryAfter time.Duration

	// Degraded is true when the store was unavailable and the request was admitted without counting.
	Degraded bool
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Key: %s, Remaining: %d/%d, ResetAt: %s}",
			d.Key, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("Decision{Allowed: false, Key: %s, Limit: %d, RetryAfter: %s}",
		d.Key, d.Limit, d.RetryAfter)
}

// ResetInSeconds returns the time until the window resets in whole seconds, rounded up.
//
// This is the value used for the X-RateLimit-Reset and Retry-After headers.
func (d *Decision) ResetInSeconds() int {
	return ceilSeconds(d.RetryAfter)
}

// ResetAtUnix returns the reset time as a Unix timestamp.
func (d *Decision) ResetAtUnix() int64 {
	return d.ResetAt.Unix()
}

func newAllowedDecision(key, bucket string, limit, remaining int, resetAt, now time.Time) *Decision {
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Key:        key,
		Bucket:     bucket,
		Allowed:    true,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: until(resetAt, now),
	}
}

func newDeniedDecision(key, bucket string, limit int, resetAt, now time.Time) *Decision {
	return &Decision{
		Key:        key,
		Bucket:     bucket,
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: until(resetAt, now),
	}
}

func until(t, now time.Time) time.Duration {
	d := t.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
