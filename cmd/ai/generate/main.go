// Package main runs one AI capability from the command line, without the HTTP
// server, quotas or authentication. The request is read as JSON from stdin.
//
// Usage: resume-ai-generate --capability summary < request.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"resume-gateway/internal/config"
	"resume-gateway/internal/infra/aiprovider"
	"resume-gateway/internal/observability/logging"
	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/internal/usecase/resumeai"
)

const cliIdentity = "cli"

func main() {
	var (
		capability string
		timeout    time.Duration
	)
	flag.StringVar(&capability, "capability", "", "Capability to run: summary, bullets, ats-score, cover-letter, suggest-skills, improve, review")
	flag.DurationVar(&timeout, "timeout", 3*time.Minute, "Overall deadline including retries")
	flag.Parse()

	c := resumeai.Capability(capability)
	if !c.Valid() {
		fmt.Fprintf(os.Stderr, "Error: unknown capability %q\n\n", capability)
		fmt.Fprintln(os.Stderr, "Usage: resume-ai-generate --capability <name> < request.json")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, `  echo '{"jobTitle":"Backend Engineer"}' | resume-ai-generate --capability summary`)
		fmt.Fprintln(os.Stderr, "  resume-ai-generate --capability review < resume.json")
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := logging.New(os.Stderr, logging.ParseLevel(os.Getenv("LOG_LEVEL")), true)
	slog.SetDefault(logger)

	aiCfg, err := config.LoadAIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	provider, err := aiprovider.New(aiprovider.Config{
		Provider:  aiCfg.Provider,
		APIKey:    aiCfg.APIKey,
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.MaxTokens,
		Timeout:   aiCfg.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := resumeai.DefaultConfig()
	cfg.Quotas.Enabled = false
	cfg.Retry = aiCfg.Retry.ToRetry()
	cfg.RetryOverrides[resumeai.CapabilityReview] = aiCfg.ReviewRetry.ToRetry()
	breaker := circuitbreaker.New(aiCfg.Breaker.ToCircuitBreaker("ai-provider", nil))
	gw := resumeai.NewGateway(provider, nil, breaker, cfg)

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read request: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("running capability",
		slog.String("capability", capability),
		slog.String("provider", provider.Name()))

	out, err := dispatch(ctx, gw, c, input)
	if err != nil {
		var ve *resumeai.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintf(os.Stderr, "Error: invalid request: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, gw *resumeai.Gateway, c resumeai.Capability, input []byte) (any, error) {
	switch c {
	case resumeai.CapabilitySummary:
		return run(ctx, input, gw.GenerateSummary)
	case resumeai.CapabilityBullets:
		return run(ctx, input, gw.GenerateBullets)
	case resumeai.CapabilityATSScore:
		return run(ctx, input, gw.ScoreATS)
	case resumeai.CapabilityCoverLetter:
		return run(ctx, input, gw.GenerateCoverLetter)
	case resumeai.CapabilitySuggestSkills:
		return run(ctx, input, gw.SuggestSkills)
	case resumeai.CapabilityImprove:
		return run(ctx, input, gw.ImproveResume)
	default:
		return run(ctx, input, gw.ReviewResume)
	}
}

func run[Req, Resp any](ctx context.Context, input []byte, fn func(context.Context, resumeai.Caller, Req) (*resumeai.Result[Resp], error)) (any, error) {
	var req Req
	if len(input) > 0 {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("request is not valid JSON: %w", err)
		}
	}
	res, err := fn(ctx, resumeai.Caller{Identity: cliIdentity}, req)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}
