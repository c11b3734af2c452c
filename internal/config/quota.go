package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"resume-gateway/pkg/ratelimit"
)

// QuotaFile holds per-capability quota overrides loaded from YAML:
//
//	buckets:
//	  ai:        {limit: 10, window: 1m}
//	  ai-review: {limit: 5, window: 1m}
//	  ai-letter: {limit: 3, window: 1m}
//	capabilities:
//	  cover-letter: ai-letter
type QuotaFile struct {
	Buckets      map[string]ratelimit.Quota `yaml:"buckets"`
	Capabilities map[string]string          `yaml:"capabilities"`
}

// LoadQuotaFile loads quota overrides from a YAML file.
// The path parameter is expected to come from a trusted source (environment or CLI flag).
func LoadQuotaFile(path string) (*QuotaFile, error) {
	// #nosec G304 -- path is provided by the operator, not by request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota file: %w", err)
	}

	var file QuotaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quota file: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("quota file validation failed: %w", err)
	}

	return &file, nil
}

// Validate checks every bucket and that each capability refers to a bucket
// defined in the file or built in.
func (f *QuotaFile) Validate() error {
	for name, q := range f.Buckets {
		if name == "" {
			return fmt.Errorf("bucket name must not be empty")
		}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("bucket %q: %w", name, err)
		}
	}

	for capability, bucket := range f.Capabilities {
		if _, ok := f.Buckets[bucket]; ok {
			continue
		}
		if bucket == ratelimit.BucketDefault || bucket == ratelimit.BucketReview {
			continue
		}
		return fmt.Errorf("capability %q refers to unknown bucket %q", capability, bucket)
	}

	return nil
}

// Apply merges the file's buckets into cfg, replacing buckets of the same name.
func (f *QuotaFile) Apply(cfg *ratelimit.Config) {
	if cfg.Buckets == nil {
		cfg.Buckets = make(map[string]ratelimit.Quota, len(f.Buckets))
	}
	for name, q := range f.Buckets {
		cfg.Buckets[name] = q
	}
}
