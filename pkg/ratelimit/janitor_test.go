package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(baseTime)
	l := NewLimiter(NewMemoryStore(MemoryStoreConfig{}), WithClock(clock))

	l.Allow(ctx, "a", BucketDefault, Quota{Limit: 1, Window: time.Minute})
	clock.Advance(2 * time.Minute)

	j := NewJanitor(l, time.Minute)
	j.sweep(ctx)

	n, err := l.store.KeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	l := NewLimiter(NewMemoryStore(MemoryStoreConfig{}))
	j := NewJanitor(l, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(NewLimiter(NewMemoryStore(MemoryStoreConfig{})), 0)
	assert.Equal(t, time.Minute, j.interval)
}
