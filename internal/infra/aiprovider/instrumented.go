package aiprovider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-gateway/internal/observability/tracing"
	"resume-gateway/internal/resilience/retry"
	"resume-gateway/internal/utils/text"
)

// Instrumented records a span, a structured log line and metrics for every
// call to the wrapped provider. Prompts and responses are never logged.
type Instrumented struct {
	next    Provider
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// NewInstrumented wraps next. A nil recorder disables metrics.
func NewInstrumented(next Provider, metrics MetricsRecorder) *Instrumented {
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Instrumented{
		next:    next,
		metrics: metrics,
		tracer:  tracing.GetTracer(),
	}
}

// Name implements Provider.
func (i *Instrumented) Name() string { return i.next.Name() }

// Available delegates to the wrapped provider.
func (i *Instrumented) Available() bool { return Available(i.next) }

// Generate implements Provider.
func (i *Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	name := i.next.Name()
	ctx, span := i.tracer.Start(ctx, "ai.provider.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ai.provider", name),
			attribute.Int("ai.prompt_length", text.CountRunes(prompt)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := i.next.Generate(ctx, prompt)
	duration := time.Since(start)

	outcome := classifyOutcome(err)
	i.metrics.RecordRequest(name, outcome, duration)

	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.StatusCode > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", perr.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		slog.WarnContext(ctx, "AI provider call failed",
			slog.String("provider", name),
			slog.String("outcome", outcome),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", err
	}

	length := text.CountRunes(out)
	i.metrics.RecordResponseLength(name, length)
	span.SetAttributes(attribute.Int("ai.response_length", length))

	slog.DebugContext(ctx, "AI provider call completed",
		slog.String("provider", name),
		slog.Int("response_length", length),
		slog.Duration("duration", duration))
	return out, nil
}

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotConfigured):
		return OutcomeUnconfigured
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case retry.IsRetryable(err, retry.DefaultMarkers):
		return OutcomeRetryable
	default:
		return OutcomeError
	}
}
