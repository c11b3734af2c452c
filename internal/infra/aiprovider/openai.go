package aiprovider

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = openai.GPT4oMini
	defaultGeminiModel = "gemini-flash-latest"

	// geminiBaseURL is Gemini's OpenAI-compatible endpoint.
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// OpenAI implements Provider using the Chat Completions API. Gemini is served
// by the same client pointed at Gemini's OpenAI-compatible endpoint.
type OpenAI struct {
	name      string
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg Config) *OpenAI {
	return newChatCompletion(NameOpenAI, cfg, "")
}

// NewGemini creates a Gemini provider.
func NewGemini(cfg Config) *OpenAI {
	return newChatCompletion(NameGemini, cfg, geminiBaseURL)
}

func newChatCompletion(name string, cfg Config, defaultBaseURL string) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	case defaultBaseURL != "":
		clientCfg.BaseURL = strings.TrimSuffix(defaultBaseURL, "/")
	}

	slog.Info("Initialized chat completion provider",
		slog.String("provider", name),
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &OpenAI{
		name:      name,
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return o.name }

// Generate implements Provider.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", o.convertError(ctx, reqCtx, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) convertError(ctx, reqCtx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &ProviderError{
			Provider:   o.name,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &ProviderError{
			Provider:   o.name,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}

	return transportError(ctx, reqCtx, o.name, err)
}
