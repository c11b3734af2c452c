package config

import (
	"fmt"
	"strings"
	"time"

	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/internal/resilience/retry"
	envconfig "resume-gateway/pkg/config"
)

// AIConfig holds configuration for the AI provider and the resilience layer around it.
type AIConfig struct {
	// Provider selects the upstream API: "claude", "openai" or "gemini".
	// Default: "gemini"
	Provider string

	// APIKey is read from the variable matching Provider
	// (ANTHROPIC_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY).
	// Empty means the provider is not configured and capability calls return 503.
	APIKey string

	// Model overrides the provider default model.
	Model string

	// MaxTokens caps the generated response. Default: 2048
	MaxTokens int

	// Timeout bounds one upstream request. Default: 60s
	Timeout time.Duration

	// ProviderRPS and ProviderBurst pace outbound requests. Default: 5 / 10
	ProviderRPS   float64
	ProviderBurst int

	// Breaker protects the provider.
	Breaker BreakerConfig

	// Retry applies to every capability; ReviewRetry replaces its delays for the full review.
	Retry       RetryConfig
	ReviewRetry RetryConfig

	// QuotaFile is an optional YAML file with per-capability quota overrides.
	QuotaFile string
}

// BreakerConfig for the AI provider circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker. Default: 5
	Threshold int

	// ResetTimeout is how long the breaker stays open before a probe. Default: 60s
	ResetTimeout time.Duration
}

// ToCircuitBreaker returns the breaker configuration for the named dependency.
// onChange may be nil.
func (c BreakerConfig) ToCircuitBreaker(name string, onChange func(name string, from, to circuitbreaker.State)) circuitbreaker.Config {
	return circuitbreaker.Config{
		Name:             name,
		FailureThreshold: c.Threshold,
		ResetTimeout:     c.ResetTimeout,
		OnStateChange:    onChange,
	}
}

// RetryConfig for transient provider failures.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Markers      []string
}

// ToRetry converts the configuration to a retry.Config.
func (c RetryConfig) ToRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Markers:      c.Markers,
	}
}

// maxRetryDelay bounds the wait between attempts; an interactive request
// cannot usefully wait longer.
const maxRetryDelay = 5 * time.Minute

// apiKeyEnv maps a provider to the variable holding its key.
var apiKeyEnv = map[string]string{
	"claude": "ANTHROPIC_API_KEY",
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// LoadAIConfig loads AI configuration from environment variables.
// Returns a config with defaults if environment variables are not set.
func LoadAIConfig() (*AIConfig, error) {
	provider := strings.ToLower(envconfig.GetEnvString("AI_PROVIDER", "gemini"))

	light := retry.AIAPIConfig()
	heavy := retry.HeavyAIAPIConfig()
	markers := envconfig.GetEnvStringList("AI_RETRY_MARKERS", retry.DefaultMarkers)
	attempts := envconfig.GetEnvPositiveInt("AI_RETRY_MAX_ATTEMPTS", light.MaxAttempts)

	config := &AIConfig{
		Provider:      provider,
		APIKey:        envconfig.GetEnvString(apiKeyEnv[provider], ""),
		Model:         envconfig.GetEnvString("AI_MODEL", ""),
		MaxTokens:     envconfig.GetEnvPositiveInt("AI_MAX_TOKENS", 2048),
		Timeout:       envconfig.GetEnvPositiveDuration("AI_TIMEOUT", 60*time.Second),
		ProviderRPS:   envconfig.GetEnvFloat("AI_PROVIDER_RPS", 5),
		ProviderBurst: envconfig.GetEnvPositiveInt("AI_PROVIDER_BURST", 10),
		Breaker: BreakerConfig{
			Threshold:    envconfig.GetEnvPositiveInt("AI_BREAKER_THRESHOLD", 5),
			ResetTimeout: envconfig.GetEnvPositiveDuration("AI_BREAKER_RESET_TIMEOUT", 60*time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: envconfig.GetEnvPositiveDuration("AI_RETRY_INITIAL_DELAY", light.InitialDelay),
			MaxDelay:     envconfig.GetEnvPositiveDuration("AI_RETRY_MAX_DELAY", light.MaxDelay),
			Markers:      markers,
		},
		ReviewRetry: RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: envconfig.GetEnvPositiveDuration("AI_REVIEW_RETRY_INITIAL_DELAY", heavy.InitialDelay),
			MaxDelay:     envconfig.GetEnvPositiveDuration("AI_REVIEW_RETRY_MAX_DELAY", heavy.MaxDelay),
			Markers:      markers,
		},
		QuotaFile: envconfig.GetEnvString("AI_QUOTA_FILE", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *AIConfig) Validate() error {
	if _, ok := apiKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("AI_PROVIDER must be one of claude, openai, gemini, got %q", c.Provider)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}

	if c.ProviderRPS < 0 {
		return fmt.Errorf("AI_PROVIDER_RPS must not be negative")
	}

	if c.Breaker.Threshold <= 0 {
		return fmt.Errorf("AI_BREAKER_THRESHOLD must be positive")
	}

	if c.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("AI_BREAKER_RESET_TIMEOUT must be positive")
	}

	for name, r := range map[string]RetryConfig{"AI_RETRY": c.Retry, "AI_REVIEW_RETRY": c.ReviewRetry} {
		if r.MaxAttempts <= 0 {
			return fmt.Errorf("%s_MAX_ATTEMPTS must be positive", name)
		}
		if r.InitialDelay > r.MaxDelay {
			return fmt.Errorf("%s_INITIAL_DELAY must not exceed %s_MAX_DELAY", name, name)
		}
		if err := envconfig.ValidateDurationRange(r.MaxDelay, time.Millisecond, maxRetryDelay); err != nil {
			return fmt.Errorf("%s_MAX_DELAY: %w", name, err)
		}
	}

	return nil
}

// Configured reports whether an API key is present for the selected provider.
func (c *AIConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}
