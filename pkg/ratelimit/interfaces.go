// Package ratelimit implements fixed-window request quotas keyed by caller identity.
//
// A Limiter admits or denies a request against a Quota (limit per window). The
// counter state lives behind the Store interface so the same Limiter runs on
// the in-process MemoryStore or on a RedisStore shared by several instances.
// Every store performs check-and-increment as a single atomic operation, so two
// concurrent requests can never both observe count=limit-1 and both be admitted.
package ratelimit

import (
	"context"
	"time"
)

// Entry is the counter state of one key within its current window.
type Entry struct {
	// Count is the number of admitted requests in the current window.
	Count int

	// ResetAt is the instant the current window ends.
	// Once now >= ResetAt the entry is expired and the next request opens a new window.
	ResetAt time.Time
}

// Expired reports whether the window of the entry has elapsed at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// Store persists fixed-window counters.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Increment admits one request for key when the window has capacity.
	//
	// If the key is absent or its window has expired at now, a new window is opened
	// with Count=1 and ResetAt=now+window. Otherwise Count is incremented only when
	// Count < limit. The returned Entry reflects the state after the call and the
	// boolean reports whether the request was admitted.
	//
	// The check and the increment must be atomic.
	Increment(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Entry, bool, error)

	// Peek returns the current entry for key without modifying it.
	// The boolean is false when the key is absent.
	Peek(ctx context.Context, key string) (Entry, bool, error)

	// Cleanup removes entries whose window has expired at now and returns how many were removed.
	Cleanup(ctx context.Context, now time.Time) (int, error)

	// KeyCount returns the number of tracked keys.
	KeyCount(ctx context.Context) (int, error)
}

// Metrics receives rate limiting observations.
type Metrics interface {
	// RecordAllowed records an admitted request for the quota bucket.
	RecordAllowed(bucket string)

	// RecordDenied records a denied request for the quota bucket.
	RecordDenied(bucket string)

	// RecordCheckDuration records how long one Allow call took.
	RecordCheckDuration(bucket string, duration time.Duration)

	// RecordStoreError records a store failure that caused a fail-open decision.
	RecordStoreError(bucket string)

	// SetActiveKeys records the number of tracked keys.
	SetActiveKeys(count int)

	// RecordCleanup records how many expired entries one cleanup pass removed.
	RecordCleanup(removed int)

	// RecordGuardState records the state of the store guard ("closed", "open", "half-open").
	RecordGuardState(state string)
}

// Clock provides the current time. Tests inject a controllable clock.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
