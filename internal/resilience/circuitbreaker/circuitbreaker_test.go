package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errUpstream = errors.New("503 service unavailable")

func newTestBreaker(clock Clock) *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		Clock:            clock,
	})
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{Name: "ai"})

	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
	if cb.cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.cfg.FailureThreshold)
	}
	if cb.cfg.ResetTimeout != 60*time.Second {
		t.Errorf("ResetTimeout = %v, want 60s", cb.cfg.ResetTimeout)
	}
	if cb.Name() != "ai" {
		t.Errorf("Name() = %q, want ai", cb.Name())
	}
}

func TestCircuitBreaker_Trip(t *testing.T) {
	cb := newTestBreaker(newFakeClock())

	for i := 1; i <= 5; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v, want upstream error", i, err)
		}
		if i < 5 && cb.State() != StateClosed {
			t.Fatalf("call %d: state = %v, want closed", i, cb.State())
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("state = %v, want open after 5 failures", cb.State())
	}

	invoked := false
	err := cb.Execute(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if invoked {
		t.Error("open breaker invoked the operation")
	}

	snap := cb.Snapshot()
	if snap.ConsecutiveFailures != 5 {
		t.Errorf("ConsecutiveFailures = %d, want 5 (rejections are not failures)", snap.ConsecutiveFailures)
	}
	if snap.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", snap.Rejected)
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	cb := newTestBreaker(newFakeClock())

	for i := 0; i < 4; i++ {
		_ = cb.Execute(fail)
	}
	_ = cb.Execute(succeed)
	for i := 0; i < 4; i++ {
		_ = cb.Execute(fail)
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed: failures were not consecutive", cb.State())
	}
	if got := cb.Snapshot().ConsecutiveFailures; got != 4 {
		t.Errorf("ConsecutiveFailures = %d, want 4", got)
	}
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	tests := []struct {
		name         string
		probe        func() error
		wantState    State
		wantFailures int
	}{
		{
			name:         "probe success closes",
			probe:        succeed,
			wantState:    StateClosed,
			wantFailures: 0,
		},
		{
			name:         "probe failure reopens",
			probe:        fail,
			wantState:    StateOpen,
			wantFailures: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			cb := newTestBreaker(clock)
			for i := 0; i < 5; i++ {
				_ = cb.Execute(fail)
			}

			clock.Advance(59 * time.Second)
			if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
				t.Fatalf("before timeout: err = %v, want ErrOpen", err)
			}

			clock.Advance(1*time.Second + time.Millisecond)
			calls := 0
			_ = cb.Execute(func() error {
				calls++
				return tt.probe()
			})
			if calls != 1 {
				t.Fatalf("probe invoked %d times, want 1", calls)
			}

			snap := cb.Snapshot()
			if snap.State != tt.wantState {
				t.Errorf("state = %v, want %v", snap.State, tt.wantState)
			}
			if snap.ConsecutiveFailures != tt.wantFailures {
				t.Errorf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, tt.wantFailures)
			}
		})
	}
}

func TestCircuitBreaker_FailedProbeWaitsFullTimeout(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}

	clock.Advance(60 * time.Second)
	_ = cb.Execute(fail)

	clock.Advance(59 * time.Second)
	if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen: timeout restarts at the failed probe", err)
	}

	clock.Advance(time.Second)
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("err = %v, want probe admitted", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}
	clock.Advance(61 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	var invoked atomic.Int32

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = cb.Execute(func() error {
			invoked.Add(1)
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open during probe", cb.State())
	}

	var rejected atomic.Int32
	var others sync.WaitGroup
	for i := 0; i < 10; i++ {
		others.Add(1)
		go func() {
			defer others.Done()
			err := cb.Execute(func() error {
				invoked.Add(1)
				return nil
			})
			if errors.Is(err, ErrOpen) {
				rejected.Add(1)
			}
		}()
	}
	others.Wait()

	close(release)
	wg.Wait()

	if got := invoked.Load(); got != 1 {
		t.Errorf("operation invoked %d times, want 1", got)
	}
	if got := rejected.Load(); got != 10 {
		t.Errorf("rejected = %d, want 10", got)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_RetryIn(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock)

	if got := cb.RetryIn(); got != 0 {
		t.Errorf("closed RetryIn = %v, want 0", got)
	}

	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}
	if got := cb.RetryIn(); got != 60*time.Second {
		t.Errorf("just opened RetryIn = %v, want 60s", got)
	}

	clock.Advance(45 * time.Second)
	if got := cb.RetryIn(); got != 15*time.Second {
		t.Errorf("RetryIn after 45s = %v, want 15s", got)
	}

	clock.Advance(20 * time.Second)
	if got := cb.RetryIn(); got != 0 {
		t.Errorf("elapsed RetryIn = %v, want 0", got)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if got := cb.RetryIn(); got != 60*time.Second {
		t.Errorf("probe in flight RetryIn = %v, want 60s", got)
	}
	close(release)
	<-done

	if got := cb.RetryIn(); got != 0 {
		t.Errorf("recovered RetryIn = %v, want 0", got)
	}
}

func TestCircuitBreaker_CancellationIsNotFailure(t *testing.T) {
	cb := newTestBreaker(newFakeClock())

	for i := 0; i < 10; i++ {
		_ = cb.Execute(func() error { return context.Canceled })
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if got := cb.Snapshot().ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestCircuitBreaker_CallerDeadlineIsNotFailure(t *testing.T) {
	cb := newTestBreaker(newFakeClock())

	for i := 0; i < 10; i++ {
		_ = cb.Execute(func() error { return fmt.Errorf("claude request aborted: %w", context.DeadlineExceeded) })
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if got := cb.Snapshot().ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestCircuitBreaker_CancelledProbeKeepsHalfOpen(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}
	clock.Advance(time.Minute)

	_ = cb.Execute(func() error { return context.Canceled })
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}

	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("next probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_StaleResultIgnored(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(func() error {
			close(started)
			<-release
			return errUpstream
		})
	}()
	<-started

	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}
	tripped := cb.Snapshot().LastFailureAt

	clock.Advance(30 * time.Second)
	close(release)
	<-done

	snap := cb.Snapshot()
	if snap.ConsecutiveFailures != 5 {
		t.Errorf("ConsecutiveFailures = %d, want 5", snap.ConsecutiveFailures)
	}
	if !snap.LastFailureAt.Equal(tripped) {
		t.Errorf("LastFailureAt moved by a call that started before the trip")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := New(Config{
		Name:             "ai-provider",
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		Clock:            clock,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(fail)
	clock.Advance(time.Second)
	_ = cb.Execute(succeed)

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_PanicCountsAsFailure(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Clock: newFakeClock()})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_ = cb.Execute(func() error { panic("boom") })
	}()

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestRun(t *testing.T) {
	cb := newTestBreaker(newFakeClock())

	got, err := Run(cb, func() (string, error) { return "summary", nil })
	if err != nil || got != "summary" {
		t.Errorf("Run() = %q, %v", got, err)
	}

	for i := 0; i < 5; i++ {
		_, _ = Run(cb, func() (string, error) { return "", errUpstream })
	}
	got, err = Run(cb, func() (string, error) { return "unreachable", nil })
	if !errors.Is(err, ErrOpen) || got != "" {
		t.Errorf("Run() on open breaker = %q, %v", got, err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
