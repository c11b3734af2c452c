package config

import (
	"log/slog"
	"time"

	"resume-gateway/pkg/ratelimit"
)

// LoadRateLimitConfig loads AI quota configuration from environment variables.
//
// Environment variables:
//   - RATE_LIMIT_ENABLED: enforce quotas (default: true)
//   - RATE_LIMIT_AI: requests per window for lightweight capabilities (default: 10)
//   - RATE_LIMIT_AI_REVIEW: requests per window for the full review (default: 5)
//   - RATE_LIMIT_WINDOW: window length shared by both buckets (default: 1m)
//   - RATE_LIMIT_STORE: "memory" or "redis" (default: memory)
//   - RATE_LIMIT_MAX_KEYS: keys tracked by the memory store (default: 10000)
//   - RATE_LIMIT_CLEANUP_INTERVAL: expired entry purge interval (default: 1m)
//   - RATE_LIMIT_GUARD_THRESHOLD: store failures before failing open (default: 5)
//   - RATE_LIMIT_GUARD_TIMEOUT: time before the store is probed again (default: 30s)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: shared store connection
//
// Invalid values are logged and replaced by defaults. The returned
// configuration always passes Validate.
func LoadRateLimitConfig() *ratelimit.Config {
	d := ratelimit.DefaultConfig()

	window := GetEnvPositiveDuration("RATE_LIMIT_WINDOW", time.Minute)

	cfg := &ratelimit.Config{
		Enabled: GetEnvBool("RATE_LIMIT_ENABLED", true),
		Store:   GetEnvString("RATE_LIMIT_STORE", ratelimit.StoreMemory),
		Buckets: map[string]ratelimit.Quota{
			ratelimit.BucketDefault: {
				Limit:  GetEnvPositiveInt("RATE_LIMIT_AI", d.Buckets[ratelimit.BucketDefault].Limit),
				Window: window,
			},
			ratelimit.BucketReview: {
				Limit:  GetEnvPositiveInt("RATE_LIMIT_AI_REVIEW", d.Buckets[ratelimit.BucketReview].Limit),
				Window: window,
			},
		},
		MaxActiveKeys:         GetEnvPositiveInt("RATE_LIMIT_MAX_KEYS", d.MaxActiveKeys),
		CleanupInterval:       GetEnvPositiveDuration("RATE_LIMIT_CLEANUP_INTERVAL", d.CleanupInterval),
		GuardFailureThreshold: GetEnvPositiveInt("RATE_LIMIT_GUARD_THRESHOLD", d.GuardFailureThreshold),
		GuardResetTimeout:     GetEnvPositiveDuration("RATE_LIMIT_GUARD_TIMEOUT", d.GuardResetTimeout),
		RedisAddr:             GetEnvString("REDIS_ADDR", d.RedisAddr),
		RedisPassword:         GetEnvString("REDIS_PASSWORD", ""),
		RedisDB:               GetEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:        GetEnvString("REDIS_KEY_PREFIX", d.RedisKeyPrefix),
	}

	if err := cfg.Validate(); err != nil {
		slog.Warn("rate limit configuration invalid, falling back to in-memory defaults",
			slog.String("error", err.Error()))
		if cfg.Store != ratelimit.StoreMemory && cfg.Store != ratelimit.StoreRedis {
			cfg.Store = ratelimit.StoreMemory
		}
		cfg.ApplyDefaults()
	}

	return cfg
}
