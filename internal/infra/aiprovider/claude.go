package aiprovider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Claude implements Provider using Anthropic's Messages API.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewClaude creates a Claude provider. The SDK's own retry loop is disabled.
func NewClaude(cfg Config, opts ...option.RequestOption) *Claude {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("Initialized Claude provider",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Claude{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// Name implements Provider.
func (c *Claude) Name() string { return NameClaude }

// Generate implements Provider.
func (c *Claude) Generate(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &ProviderError{
				Provider:   NameClaude,
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Error(),
				Err:        err,
			}
		}
		return "", transportError(ctx, reqCtx, NameClaude, err)
	}

	if len(message.Content) == 0 {
		return "", ErrEmptyResponse
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok || textBlock.Text == "" {
		return "", ErrEmptyResponse
	}
	return textBlock.Text, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
