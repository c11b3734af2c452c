package ratelimit

import (
	"fmt"
	"time"
)

// Default quota buckets.
const (
	// BucketDefault is the bucket used by lightweight AI capabilities.
	BucketDefault = "ai"

	// BucketReview is the stricter bucket used by the full resume review.
	BucketReview = "ai-review"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Quota is a request limit over a fixed window.
type Quota struct {
	// Limit is the number of requests admitted per window.
	Limit int `yaml:"limit"`

	// Window is the length of one window.
	Window time.Duration `yaml:"window"`
}

// Validate checks that the quota admits at least one request per positive window.
func (q Quota) Validate() error {
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", q.Limit)
	}
	if q.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", q.Window)
	}
	return nil
}

// Config holds rate limiting configuration.
type Config struct {
	// Enabled turns quota enforcement on. When false every request is admitted.
	Enabled bool

	// Store selects the counter backend: StoreMemory or StoreRedis.
	Store string

	// Buckets maps a bucket name to its quota. Unknown buckets use Buckets[BucketDefault].
	Buckets map[string]Quota

	// MaxActiveKeys bounds the number of keys the memory store tracks.
	MaxActiveKeys int

	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration

	// GuardFailureThreshold is the number of consecutive store failures
	// after which the store guard opens and the limiter fails open.
	GuardFailureThreshold int

	// GuardResetTimeout is how long the store guard stays open before probing the store again.
	GuardResetTimeout time.Duration

	// RedisAddr, RedisPassword and RedisDB configure the shared store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RedisKeyPrefix namespaces the keys written to Redis.
	RedisKeyPrefix string
}

// DefaultConfig returns the configuration used when nothing is overridden:
// 10 requests per minute for lightweight capabilities and 5 per minute for reviews.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Store:   StoreMemory,
		Buckets: map[string]Quota{
			BucketDefault: {Limit: 10, Window: time.Minute},
			BucketReview:  {Limit: 5, Window: time.Minute},
		},
		MaxActiveKeys:         10000,
		CleanupInterval:       time.Minute,
		GuardFailureThreshold: 5,
		GuardResetTimeout:     30 * time.Second,
		RedisAddr:             "localhost:6379",
		RedisKeyPrefix:        "ratelimit:",
	}
}

// QuotaFor returns the quota of bucket, falling back to the default bucket.
func (c *Config) QuotaFor(bucket string) Quota {
	if q, ok := c.Buckets[bucket]; ok {
		return q
	}
	return c.Buckets[BucketDefault]
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("Store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Store)
	}

	if _, ok := c.Buckets[BucketDefault]; !ok {
		return fmt.Errorf("Buckets must contain %q", BucketDefault)
	}
	for name, q := range c.Buckets {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("Buckets[%s]: %w", name, err)
		}
	}

	if c.MaxActiveKeys < 0 {
		return fmt.Errorf("MaxActiveKeys must be non-negative, got %d", c.MaxActiveKeys)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CleanupInterval must be positive, got %s", c.CleanupInterval)
	}
	if c.GuardFailureThreshold < 0 {
		return fmt.Errorf("GuardFailureThreshold must be non-negative, got %d", c.GuardFailureThreshold)
	}
	if c.GuardResetTimeout < 0 {
		return fmt.Errorf("GuardResetTimeout must be non-negative, got %s", c.GuardResetTimeout)
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("RedisAddr is required when Store is %q", StoreRedis)
	}

	return nil
}

// ApplyDefaults fills zero values with the defaults of DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	if c.Store == "" {
		c.Store = d.Store
	}
	if c.Buckets == nil {
		c.Buckets = map[string]Quota{}
	}
	for name, q := range d.Buckets {
		if existing, ok := c.Buckets[name]; !ok || existing.Validate() != nil {
			c.Buckets[name] = q
		}
	}
	if c.MaxActiveKeys == 0 {
		c.MaxActiveKeys = d.MaxActiveKeys
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.GuardFailureThreshold == 0 {
		c.GuardFailureThreshold = d.GuardFailureThreshold
	}
	if c.GuardResetTimeout == 0 {
		c.GuardResetTimeout = d.GuardResetTimeout
	}
	if c.RedisAddr == "" {
		c.RedisAddr = d.RedisAddr
	}
	if c.RedisKeyPrefix == "" {
		c.RedisKeyPrefix = d.RedisKeyPrefix
	}
}
