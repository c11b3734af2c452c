package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically purges expired entries so memory stays bounded
// even when no request touches a stale key again.
type Janitor struct {
	limiter  *Limiter
	interval time.Duration
	cron     *cron.Cron
}

// NewJanitor creates a Janitor that runs limiter.Cleanup every interval.
func NewJanitor(limiter *Limiter, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		limiter:  limiter,
		interval: interval,
		cron:     cron.New(),
	}
}

// Run schedules the cleanup job and blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	schedule := fmt.Sprintf("@every %s", j.interval)
	if _, err := j.cron.AddFunc(schedule, func() { j.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule rate limit cleanup: %w", err)
	}

	j.cron.Start()
	slog.Info("rate limit cleanup started", slog.Duration("interval", j.interval))

	<-ctx.Done()

	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	slog.Info("rate limit cleanup stopped")
	return nil
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.limiter.Cleanup(ctx)
	if err != nil {
		slog.Warn("rate limit cleanup failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		slog.Debug("rate limit cleanup removed expired entries", slog.Int("removed", removed))
	}
}
