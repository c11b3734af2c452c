// Package aiprovider provides the generative-AI clients behind the resume gateway.
// It includes adapters for Claude (Anthropic), OpenAI, and Gemini through its
// OpenAI-compatible endpoint, plus wrappers for outbound pacing and observability.
//
// Providers make exactly one upstream request per Generate call. Retries and
// circuit breaking are applied by the caller; SDK-level retries are disabled.
package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	NameClaude = "claude"
	NameOpenAI = "openai"
	NameGemini = "gemini"
)

var (
	// ErrNotConfigured is returned by the Unavailable provider.
	ErrNotConfigured = errors.New("ai provider is not configured")

	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = errors.New("ai provider returned empty response")
)

// Provider sends one prompt to a generative model and returns its text output.
type Provider interface {
	// Name identifies the provider in logs, metrics and errors.
	Name() string

	// Generate returns the model's text response for prompt.
	// Failures reported by the upstream API are returned as *ProviderError.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterises a provider.
type Config struct {
	// Provider is one of NameClaude, NameOpenAI or NameGemini.
	Provider string

	// APIKey authenticates against the provider. Empty means not configured.
	APIKey string

	// Model overrides the provider's default model.
	Model string

	// MaxTokens caps the length of the generated response.
	MaxTokens int

	// Timeout bounds a single upstream request.
	Timeout time.Duration

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
}

// DefaultModel returns the model used when Config.Model is empty.
func DefaultModel(provider string) string {
	switch provider {
	case NameClaude:
		return defaultClaudeModel
	case NameOpenAI:
		return defaultOpenAIModel
	case NameGemini:
		return defaultGeminiModel
	default:
		return ""
	}
}

// New builds the provider selected by cfg.Provider. A missing API key yields
// the Unavailable provider rather than an error, so the service can start and
// report the condition per request. An unknown provider name is an error.
func New(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case NameClaude, NameOpenAI, NameGemini:
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewUnavailable(name), nil
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(name)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch name {
	case NameClaude:
		return NewClaude(cfg), nil
	case NameOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return NewGemini(cfg), nil
	}
}

// Available reports whether p can serve requests. Wrappers delegate to the
// provider they wrap.
func Available(p Provider) bool {
	if p == nil {
		return false
	}
	if a, ok := p.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// Unavailable is the provider used when no API key is configured.
// Every call fails with ErrNotConfigured.
type Unavailable struct {
	name string
}

// NewUnavailable creates an Unavailable provider reporting the given name.
func NewUnavailable(name string) *Unavailable {
	return &Unavailable{name: name}
}

// Name implements Provider.
func (u *Unavailable) Name() string { return u.name }

// Generate implements Provider.
func (u *Unavailable) Generate(_ context.Context, _ string) (string, error) {
	return "", ErrNotConfigured
}

// Available implements the availability check used by Available.
func (u *Unavailable) Available() bool { return false }
