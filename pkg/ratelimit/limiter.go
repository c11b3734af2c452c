package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Key builds the composite store key for an identity within a quota bucket.
// Capabilities with different quotas use different buckets, so their counters
// never interfere with each other.
func Key(identity, bucket string) string {
	return bucket + ":" + identity
}

// Limiter enforces fixed-window quotas on top of a Store.
type Limiter struct {
	store   Store
	clock   Clock
	metrics Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock used for window arithmetic.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(l *Limiter) {
		if m != nil {
			l.metrics = m
		}
	}
}

// NewLimiter creates a Limiter backed by store.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:   store,
		clock:   &SystemClock{},
		metrics: NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for identity in bucket and reports whether it is within quota.
//
// The first request of an identity, or the first one after the window has
// elapsed, opens a new window with a count of 1. When the store fails the
// request is admitted and the returned decision is marked Degraded.
func (l *Limiter) Allow(ctx context.Context, identity, bucket string, q Quota) *Decision {
	start := time.Now()
	defer func() {
		l.metrics.RecordCheckDuration(bucket, time.Since(start))
	}()

	key := Key(identity, bucket)
	now := l.clock.Now()

	entry, admitted, err := l.store.Increment(ctx, key, q.Limit, q.Window, now)
	if err != nil {
		slog.Warn("rate limit store failed, admitting request",
			slog.String("bucket", bucket),
			slog.String("error", err.Error()))
		l.metrics.RecordStoreError(bucket)
		d := newAllowedDecision(key, bucket, q.Limit, q.Limit, now.Add(q.Window), now)
		d.Degraded = true
		return d
	}

	if !admitted {
		l.metrics.RecordDenied(bucket)
		return newDeniedDecision(key, bucket, q.Limit, entry.ResetAt, now)
	}

	l.metrics.RecordAllowed(bucket)
	return newAllowedDecision(key, bucket, q.Limit, q.Limit-entry.Count, entry.ResetAt, now)
}

// Check is the boolean form of Allow for a raw key, limit and window.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) bool {
	_, admitted, err := l.store.Increment(ctx, key, limit, window, l.clock.Now())
	if err != nil {
		return true
	}
	return admitted
}

// Remaining returns how many requests key may still make in its current window.
//
// It returns limit when the key is absent or its window has expired. It never
// modifies the stored entry.
func (l *Limiter) Remaining(ctx context.Context, key string, limit int) int {
	entry, ok, err := l.store.Peek(ctx, key)
	if err != nil || !ok || entry.Expired(l.clock.Now()) {
		return limit
	}
	if remaining := limit - entry.Count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetIn returns the number of seconds, rounded up, until the window of key resets.
// It returns 0 when there is no active window.
func (l *Limiter) ResetIn(ctx context.Context, key string) int {
	entry, ok, err := l.store.Peek(ctx, key)
	if err != nil || !ok {
		return 0
	}
	return ceilSeconds(until(entry.ResetAt, l.clock.Now()))
}

// Cleanup purges expired entries and refreshes the active key gauge.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	removed, err := l.store.Cleanup(ctx, l.clock.Now())
	if err != nil {
		return 0, err
	}
	l.metrics.RecordCleanup(removed)

	if count, err := l.store.KeyCount(ctx); err == nil {
		l.metrics.SetActiveKeys(count)
	}
	return removed, nil
}
