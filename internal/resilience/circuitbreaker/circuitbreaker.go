// Package circuitbreaker stops calls to an unhealthy dependency and probes its recovery.
//
// The breaker counts consecutive failures. Once FailureThreshold is reached it
// opens and rejects every call with ErrOpen without invoking the dependency.
// The first call made ResetTimeout after the last failure moves it to half-open
// and is let through as the single probe: success closes the breaker, failure
// reopens it for another full timeout.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without invoking the dependency.
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int

	// ResetTimeout is how long after the last failure the breaker allows a probe.
	ResetTimeout time.Duration

	// Clock defaults to the wall clock.
	Clock Clock

	// IsFailure decides whether an error counts against the dependency.
	// Defaults to every non-nil error except context.Canceled and
	// context.DeadlineExceeded, which belong to the caller.
	IsFailure func(err error) bool

	// OnStateChange is called after every transition, with the breaker lock released.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a configuration with a threshold of 5 failures and a 60 second reset timeout.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// Snapshot is a point-in-time view of the breaker.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	LastFailureAt       time.Time
	Rejected            uint64
}

// CircuitBreaker is safe for concurrent use. One instance is shared by every
// caller of the protected dependency.
type CircuitBreaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	lastFailureAt time.Time
	probing       bool
	generation    uint64
	rejected      uint64
}

type transition struct {
	from, to State
}

// New creates a closed circuit breaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// State returns the current state. An open breaker whose timeout has elapsed
// still reports StateOpen until the next call moves it to half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen reports whether the breaker is open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Snapshot returns the breaker state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		LastFailureAt:       cb.lastFailureAt,
		Rejected:            cb.rejected,
	}
}

// RetryIn returns how long until the breaker admits its next probe. It is zero
// when the breaker is closed or the reset timeout has already elapsed.
// While a half-open probe is in flight the full reset timeout is reported,
// since a failed probe reopens the breaker for that long.
func (cb *CircuitBreaker) RetryIn() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		remaining := cb.cfg.ResetTimeout - cb.cfg.Clock.Now().Sub(cb.lastFailureAt)
		if remaining < 0 {
			return 0
		}
		return remaining
	case StateHalfOpen:
		if cb.probing {
			return cb.cfg.ResetTimeout
		}
	}
	return 0
}

// Execute runs fn through the breaker.
//
// It returns ErrOpen without calling fn while the breaker is open, or while
// another caller holds the half-open probe. Otherwise it returns the error of fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, probe, err := cb.before()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.after(gen, probe, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err = fn()
	cb.after(gen, probe, err)
	return err
}

// Run is Execute for functions that return a value.
func Run[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

func (cb *CircuitBreaker) before() (gen uint64, probe bool, err error) {
	cb.mu.Lock()
	var changed *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	switch cb.state {
	case StateOpen:
		if cb.cfg.Clock.Now().Sub(cb.lastFailureAt) < cb.cfg.ResetTimeout {
			cb.rejected++
			return cb.generation, false, ErrOpen
		}
		changed = cb.setState(StateHalfOpen)
		cb.probing = true
		return cb.generation, true, nil

	case StateHalfOpen:
		if cb.probing {
			cb.rejected++
			return cb.generation, false, ErrOpen
		}
		cb.probing = true
		return cb.generation, true, nil

	default:
		return cb.generation, false, nil
	}
}

func (cb *CircuitBreaker) after(gen uint64, probe bool, err error) {
	cb.mu.Lock()
	var changed *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	// The breaker changed state while this call was in flight; its outcome
	// describes a period that has already been accounted for.
	if gen != cb.generation {
		return
	}

	failed := cb.cfg.IsFailure(err)

	if probe {
		cb.probing = false
		switch {
		case err == nil:
			cb.failures = 0
			changed = cb.setState(StateClosed)
		case failed:
			cb.failures++
			cb.lastFailureAt = cb.cfg.Clock.Now()
			changed = cb.setState(StateOpen)
		}
		return
	}

	if err == nil {
		cb.failures = 0
		return
	}
	if !failed {
		return
	}

	cb.failures++
	cb.lastFailureAt = cb.cfg.Clock.Now()
	if cb.failures >= cb.cfg.FailureThreshold {
		changed = cb.setState(StateOpen)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) *transition {
	if cb.state == to {
		return nil
	}
	from := cb.state
	cb.state = to
	cb.generation++
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil {
		return
	}
	slog.Warn("circuit breaker state changed",
		slog.String("circuit", cb.cfg.Name),
		slog.String("from", t.from.String()),
		slog.String("to", t.to.String()))
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, t.from, t.to)
	}
}
