// Package resumeai runs the resume builder's AI capabilities behind quotas,
// a circuit breaker, and a retry policy.
//
// Every capability goes through the same pipeline: identity, quota, provider
// configuration, sanitization and validation, prompt, breaker-wrapped retried
// generation, and lenient parsing with a deterministic fallback.
package resumeai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resume-gateway/internal/infra/aiprovider"
	"resume-gateway/internal/observability/metrics"
	"resume-gateway/internal/observability/tracing"
	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/internal/resilience/retry"
	"resume-gateway/internal/sanitize"
	"resume-gateway/pkg/ratelimit"
)

// Caller identifies who is calling and under which request id.
type Caller struct {
	// Identity is the authenticated user id. It keys the quota.
	Identity string

	// RequestID correlates logs. A UUID is generated when empty.
	RequestID string
}

// Result is a capability response plus the quota state after the call.
type Result[T any] struct {
	Value     T
	RequestID string

	// Quota is nil when quota enforcement is disabled.
	Quota *ratelimit.Decision
}

// Config holds the gateway settings.
type Config struct {
	// Quotas supplies bucket quotas and the enforcement switch.
	// Defaults to ratelimit.DefaultConfig().
	Quotas *ratelimit.Config

	// Buckets maps capabilities to quota buckets. Missing entries use DefaultBuckets.
	Buckets map[Capability]string

	// Retry is the policy for every capability without an override.
	Retry retry.Config

	// RetryOverrides replaces Retry for specific capabilities.
	RetryOverrides map[Capability]retry.Config
}

// DefaultConfig returns the production quota buckets, the interactive retry
// policy, and the slower policy for the full review.
func DefaultConfig() Config {
	return Config{
		Quotas:  ratelimit.DefaultConfig(),
		Buckets: DefaultBuckets(),
		Retry:   retry.AIAPIConfig(),
		RetryOverrides: map[Capability]retry.Config{
			CapabilityReview: retry.HeavyAIAPIConfig(),
		},
	}
}

// Gateway runs capabilities. It is safe for concurrent use; the limiter and
// breaker it is given are shared by every capability.
type Gateway struct {
	provider aiprovider.Provider
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	cfg      Config
}

// NewGateway creates a Gateway.
func NewGateway(provider aiprovider.Provider, limiter *ratelimit.Limiter, breaker *circuitbreaker.CircuitBreaker, cfg Config) *Gateway {
	if cfg.Quotas == nil {
		cfg.Quotas = ratelimit.DefaultConfig()
	}
	buckets := DefaultBuckets()
	for c, b := range cfg.Buckets {
		buckets[c] = b
	}
	cfg.Buckets = buckets
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.AIAPIConfig()
	}
	return &Gateway{
		provider: provider,
		limiter:  limiter,
		breaker:  breaker,
		cfg:      cfg,
	}
}

// Bucket returns the quota bucket of capability c.
func (g *Gateway) Bucket(c Capability) string {
	return g.cfg.Buckets[c]
}

// ProviderConfigured reports whether capability calls can reach the provider.
func (g *Gateway) ProviderConfigured() bool {
	return aiprovider.Available(g.provider)
}

// ProviderName returns the configured provider name.
func (g *Gateway) ProviderName() string {
	if g.provider == nil {
		return "none"
	}
	return g.provider.Name()
}

// BreakerState returns the provider breaker state.
func (g *Gateway) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}

func (g *Gateway) retryConfig(c Capability) retry.Config {
	if rc, ok := g.cfg.RetryOverrides[c]; ok {
		return rc
	}
	return g.cfg.Retry
}

// pipeline describes one capability call. prepare sanitizes and validates the
// input and returns the prompt; parse turns the model text into the response.
type pipeline[T any] struct {
	capability Capability
	prepare    func() (string, error)
	parse      func(text string) T
}

func run[T any](ctx context.Context, g *Gateway, caller Caller, p pipeline[T]) (*Result[T], error) {
	start := time.Now()
	outcome := metrics.OutcomeFailed
	defer func() {
		metrics.RecordCapability(string(p.capability), outcome, time.Since(start))
	}()

	requestID := caller.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	logger := slog.With(
		slog.String("request_id", requestID),
		slog.String("capability", string(p.capability)))

	ctx, span := tracing.GetTracer().Start(ctx, "resumeai."+string(p.capability))
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.capability", string(p.capability)),
		attribute.String("request.id", requestID))

	if strings.TrimSpace(caller.Identity) == "" {
		logger.WarnContext(ctx, "unauthenticated AI request")
		outcome = metrics.OutcomeUnauthorized
		return nil, ErrUnauthorized
	}

	decision, err := g.admit(ctx, caller.Identity, p.capability)
	if err != nil {
		logger.WarnContext(ctx, "AI quota exceeded",
			slog.String("bucket", decision.Bucket),
			slog.Int("retry_after_seconds", decision.ResetInSeconds()))
		span.SetAttributes(attribute.Bool("ratelimit.denied", true))
		outcome = metrics.OutcomeQuotaExceeded
		return nil, err
	}

	if !g.ProviderConfigured() {
		logger.ErrorContext(ctx, "AI provider not configured", slog.String("provider", g.ProviderName()))
		outcome = metrics.OutcomeUnavailable
		return nil, ErrProviderUnavailable
	}

	prompt, err := p.prepare()
	if err != nil {
		logger.InfoContext(ctx, "AI request rejected", slog.String("error", err.Error()))
		outcome = metrics.OutcomeInvalid
		return nil, err
	}

	text, err := g.generate(ctx, p.capability, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			logger.WarnContext(ctx, "AI call rejected by circuit breaker")
			outcome = metrics.OutcomeBreakerOpen
			return nil, &BreakerOpenError{RetryIn: g.breaker.RetryIn()}
		case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
			cause := ctx.Err()
			if cause == nil {
				cause = context.DeadlineExceeded
			}
			logger.InfoContext(ctx, "AI request cancelled by caller", slog.String("cause", cause.Error()))
			outcome = metrics.OutcomeCanceled
			return nil, fmt.Errorf("%s aborted: %w", p.capability, cause)
		default:
			logger.ErrorContext(ctx, "AI generation failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
		}
	}

	value := p.parse(text)
	outcome = metrics.OutcomeSuccess
	if fb, ok := any(value).(fallbackReporter); ok && fb.fellBack() {
		outcome = metrics.OutcomeFallback
		logger.WarnContext(ctx, "AI response could not be parsed, using fallback")
	}
	logger.InfoContext(ctx, "AI capability completed", slog.Int("response_length", len(text)))

	return &Result[T]{Value: value, RequestID: requestID, Quota: decision}, nil
}

// admit charges one request to the caller's bucket. The returned decision is
// nil when quotas are disabled.
func (g *Gateway) admit(ctx context.Context, identity string, c Capability) (*ratelimit.Decision, error) {
	if !g.cfg.Quotas.Enabled || g.limiter == nil {
		return nil, nil
	}
	bucket := g.Bucket(c)
	decision := g.limiter.Allow(ctx, identity, bucket, g.cfg.Quotas.QuotaFor(bucket))
	if !decision.Allowed {
		return decision, &QuotaExceededError{Decision: decision}
	}
	return decision, nil
}

// generate nests the retry policy inside the breaker, so a call that exhausts
// its retries counts as one breaker failure.
func (g *Gateway) generate(ctx context.Context, c Capability, prompt string) (string, error) {
	return circuitbreaker.Run(g.breaker, func() (string, error) {
		return retry.WithBackoffValue(ctx, g.retryConfig(c), func() (string, error) {
			return g.provider.Generate(ctx, prompt)
		})
	})
}

// GenerateSummary writes a professional summary for a job title.
func (g *Gateway) GenerateSummary(ctx context.Context, caller Caller, req SummaryRequest) (*Result[SummaryResponse], error) {
	return run(ctx, g, caller, pipeline[SummaryResponse]{
		capability: CapabilitySummary,
		prepare: func() (string, error) {
			jobTitle := sanitize.JobTitle(req.JobTitle)
			if jobTitle == "" {
				return "", required("jobTitle", "Job title is required")
			}
			experience := sanitize.ForAI(experienceText(req.Experience), sanitize.MaxAIInputLength)
			skills := sanitize.ForAI(skillsText(req.Skills), sanitize.MaxSkillsLength)
			return summaryPrompt(jobTitle, experience, skills), nil
		},
		parse: func(text string) SummaryResponse {
			return SummaryResponse{Summary: strings.TrimSpace(text)}
		},
	})
}

// GenerateBullets writes achievement bullets for one resume entry.
func (g *Gateway) GenerateBullets(ctx context.Context, caller Caller, req BulletsRequest) (*Result[BulletsResponse], error) {
	return run(ctx, g, caller, pipeline[BulletsResponse]{
		capability: CapabilityBullets,
		prepare: func() (string, error) {
			entry := sanitize.ForAI(req.Context, sanitize.MaxAIInputLength)
			if entry == "" {
				return "", required("context", "Context is required (e.g., 'experience' or 'project')")
			}
			jobTitle := sanitize.JobTitle(req.JobTitle)
			experience := sanitize.ForAI(experienceText(req.Experience), sanitize.MaxAIInputLength)
			skills := sanitize.ForAI(skillsText(req.Skills), sanitize.MaxSkillsLength)
			return bulletsPrompt(entry, jobTitle, experience, skills), nil
		},
		parse: parseBullets,
	})
}

// ScoreATS rates the resume's compatibility with applicant tracking systems.
func (g *Gateway) ScoreATS(ctx context.Context, caller Caller, req ATSRequest) (*Result[ATSAnalysis], error) {
	return run(ctx, g, caller, pipeline[ATSAnalysis]{
		capability: CapabilityATSScore,
		prepare: func() (string, error) {
			content, err := resumeContent(req.ResumeContent)
			if err != nil {
				return "", err
			}
			jobDescription := sanitize.ForAI(req.JobDescription, sanitize.MaxJobDescriptionLength)
			return atsPrompt(content, jobDescription), nil
		},
		parse: parseATS,
	})
}

// GenerateCoverLetter writes a cover letter for one application.
func (g *Gateway) GenerateCoverLetter(ctx context.Context, caller Caller, req CoverLetterRequest) (*Result[CoverLetterResponse], error) {
	return run(ctx, g, caller, pipeline[CoverLetterResponse]{
		capability: CapabilityCoverLetter,
		prepare: func() (string, error) {
			jobTitle := sanitize.JobTitle(req.JobTitle)
			company := sanitize.JobTitle(req.CompanyName)
			if jobTitle == "" || company == "" {
				field := "jobTitle"
				if jobTitle != "" {
					field = "companyName"
				}
				return "", required(field, "Job title and company name are required")
			}
			content := sanitize.ResumeContent(req.ResumeContent)
			jobDescription := sanitize.ForAI(req.JobDescription, sanitize.MaxJobDescriptionLength)
			return coverLetterPrompt(content, jobTitle, company, jobDescription), nil
		},
		parse: func(text string) CoverLetterResponse {
			return CoverLetterResponse{CoverLetter: strings.TrimSpace(text)}
		},
	})
}

// SuggestSkills proposes skills for a role that are not listed yet.
func (g *Gateway) SuggestSkills(ctx context.Context, caller Caller, req SkillsRequest) (*Result[SkillsResponse], error) {
	return run(ctx, g, caller, pipeline[SkillsResponse]{
		capability: CapabilitySuggestSkills,
		prepare: func() (string, error) {
			jobTitle := sanitize.JobTitle(req.JobTitle)
			if jobTitle == "" {
				return "", required("jobTitle", "Job title is required")
			}
			industry := sanitize.ForAI(req.Industry, sanitize.MaxJobTitleLength)
			current := sanitize.Array(skillList(req.CurrentSkills), sanitize.MaxArrayItems)
			return skillsPrompt(jobTitle, industry, current), nil
		},
		parse: parseSkills,
	})
}

// ImproveResume suggests section-by-section improvements.
func (g *Gateway) ImproveResume(ctx context.Context, caller Caller, req ImproveRequest) (*Result[ImprovementAnalysis], error) {
	return run(ctx, g, caller, pipeline[ImprovementAnalysis]{
		capability: CapabilityImprove,
		prepare: func() (string, error) {
			content, err := resumeContent(req.ResumeContent)
			if err != nil {
				return "", err
			}
			return improvePrompt(content, sanitize.JobTitle(req.TargetJobTitle)), nil
		},
		parse: parseImprovement,
	})
}

// ReviewResume runs the comprehensive review. It uses the review bucket and retry policy.
func (g *Gateway) ReviewResume(ctx context.Context, caller Caller, req ReviewRequest) (*Result[ResumeReview], error) {
	return run(ctx, g, caller, pipeline[ResumeReview]{
		capability: CapabilityReview,
		prepare: func() (string, error) {
			content, err := resumeContent(req.ResumeContent)
			if err != nil {
				return "", err
			}
			return reviewPrompt(content), nil
		},
		parse: parseReview,
	})
}

// resumeContent requires a JSON object and sanitizes it.
func resumeContent(v any) (map[string]any, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, required("resumeContent", "Resume content is required")
	}
	return sanitize.ResumeContent(v), nil
}
