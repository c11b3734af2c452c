package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrStoreUnavailable is returned by GuardedStore while the guard is open.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// GuardConfig configures a GuardedStore.
type GuardConfig struct {
	// Name identifies the guard in logs.
	Name string

	// FailureThreshold is the number of consecutive store errors that opens the guard (default 5).
	FailureThreshold int

	// ResetTimeout is how long the guard stays open before letting one probe through (default 30s).
	ResetTimeout time.Duration

	// Metrics receives guard state changes. Optional.
	Metrics Metrics
}

// GuardedStore protects a remote Store with a circuit breaker.
//
// When the store keeps failing, calls are rejected with ErrStoreUnavailable
// without a round trip. The Limiter treats any store error as a reason to fail
// open, so a Redis outage degrades quota enforcement instead of rejecting all
// AI traffic.
type GuardedStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

type incrementResult struct {
	entry    Entry
	admitted bool
}

type peekResult struct {
	entry Entry
	found bool
}

// NewGuardedStore wraps next with a circuit breaker.
func NewGuardedStore(next Store, cfg GuardConfig) *GuardedStore {
	if cfg.Name == "" {
		cfg.Name = "ratelimit-store"
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewNoOpMetrics()
	}

	threshold := uint32(cfg.FailureThreshold)
	metrics := cfg.Metrics

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a store failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("rate limit store guard state changed",
				slog.String("guard", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordGuardState(to.String())
		},
	}

	metrics.RecordGuardState(gobreaker.StateClosed.String())

	return &GuardedStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// State returns the guard state.
func (g *GuardedStore) State() gobreaker.State {
	return g.cb.State()
}

// Increment implements Store.
func (g *GuardedStore) Increment(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Entry, bool, error) {
	res, err := guarded(g, func() (incrementResult, error) {
		e, ok, err := g.next.Increment(ctx, key, limit, window, now)
		return incrementResult{entry: e, admitted: ok}, err
	})
	return res.entry, res.admitted, err
}

// Peek implements Store.
func (g *GuardedStore) Peek(ctx context.Context, key string) (Entry, bool, error) {
	res, err := guarded(g, func() (peekResult, error) {
		e, ok, err := g.next.Peek(ctx, key)
		return peekResult{entry: e, found: ok}, err
	})
	return res.entry, res.found, err
}

// Cleanup implements Store.
func (g *GuardedStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	return guarded(g, func() (int, error) {
		return g.next.Cleanup(ctx, now)
	})
}

// KeyCount implements Store.
func (g *GuardedStore) KeyCount(ctx context.Context) (int, error) {
	return guarded(g, func() (int, error) {
		return g.next.KeyCount(ctx)
	})
}

func guarded[T any](g *GuardedStore, fn func() (T, error)) (T, error) {
	var zero T

	v, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrStoreUnavailable
		}
		return zero, err
	}

	return v.(T), nil
}
