package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	assert.Equal(t, Quota{Limit: 10, Window: time.Minute}, c.QuotaFor(BucketDefault))
	assert.Equal(t, Quota{Limit: 5, Window: time.Minute}, c.QuotaFor(BucketReview))
	assert.Equal(t, c.QuotaFor(BucketDefault), c.QuotaFor("unknown"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown store", func(c *Config) { c.Store = "etcd" }, "Store"},
		{"missing default bucket", func(c *Config) { delete(c.Buckets, BucketDefault) }, "must contain"},
		{"zero limit", func(c *Config) { c.Buckets[BucketReview] = Quota{Limit: 0, Window: time.Minute} }, "limit must be positive"},
		{"zero window", func(c *Config) { c.Buckets[BucketReview] = Quota{Limit: 1} }, "window must be positive"},
		{"negative max keys", func(c *Config) { c.MaxActiveKeys = -1 }, "MaxActiveKeys"},
		{"zero cleanup interval", func(c *Config) { c.CleanupInterval = 0 }, "CleanupInterval"},
		{"redis without addr", func(c *Config) { c.Store = StoreRedis; c.RedisAddr = "" }, "RedisAddr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	c := &Config{
		Buckets: map[string]Quota{
			BucketReview: {Limit: 3, Window: 30 * time.Second},
			"broken":     {Limit: -1},
		},
	}
	c.ApplyDefaults()

	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, Quota{Limit: 10, Window: time.Minute}, c.Buckets[BucketDefault])
	assert.Equal(t, Quota{Limit: 3, Window: 30 * time.Second}, c.Buckets[BucketReview], "valid override kept")
	assert.Equal(t, 10000, c.MaxActiveKeys)
	assert.Equal(t, time.Minute, c.CleanupInterval)
	assert.Equal(t, "ratelimit:", c.RedisKeyPrefix)
}
