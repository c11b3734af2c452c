package aigateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"resume-gateway/internal/handler/http/auth"
	"resume-gateway/internal/handler/http/requestid"
	"resume-gateway/internal/handler/http/respond"
	"resume-gateway/internal/observability/logging"
	"resume-gateway/internal/usecase/resumeai"
	"resume-gateway/pkg/ratelimit"
)

// Client-facing messages and headers.
const (
	msgUnauthorized  = "Unauthorized"
	msgRateLimited   = "Rate limit exceeded. Please try again later."
	msgBreakerOpen   = "AI service is temporarily unavailable. Please try again in a minute."
	msgUnavailable   = "AI service temporarily unavailable"
	msgInvalidBody   = "Invalid request body"
	msgBodyTooLarge  = "Request body too large"
	headerRetryAfter = "Retry-After"
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"

	// statusClientClosedRequest is logged for requests the client abandoned.
	statusClientClosedRequest = 499
)

// capabilityFunc is the signature shared by the Gateway capability methods.
type capabilityFunc[Req, Resp any] func(ctx context.Context, caller resumeai.Caller, req Req) (*resumeai.Result[Resp], error)

// serve adapts a capability to HTTP. failureMsg is returned with 500 for
// errors that have no dedicated status.
func serve[Req, Resp any](fn capabilityFunc[Req, Resp], failureMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller := resumeai.Caller{
			Identity:  auth.IdentityFromContext(ctx),
			RequestID: requestid.FromContext(ctx),
		}

		var req Req
		if err := decodeBody(r, &req); err != nil {
			writeDecodeError(w, caller.RequestID, err)
			return
		}

		res, err := fn(ctx, caller, req)
		if err != nil {
			writeError(ctx, w, caller.RequestID, err, failureMsg)
			return
		}

		setQuotaHeaders(w, res.Quota)
		w.Header().Set(requestid.RequestIDHeader, res.RequestID)
		respond.JSON(w, http.StatusOK, res.Value)
	}
}

// decodeBody decodes a single JSON value. An empty body decodes as {} so that
// missing fields are reported by validation.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, requestID string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeBody(w, http.StatusRequestEntityTooLarge, respond.ErrorBody{Message: msgBodyTooLarge, RequestID: requestID})
		return
	}
	writeBody(w, http.StatusBadRequest, respond.ErrorBody{Message: msgInvalidBody, RequestID: requestID})
}

func writeError(ctx context.Context, w http.ResponseWriter, requestID string, err error, failureMsg string) {
	var (
		quotaErr   *resumeai.QuotaExceededError
		validErr   *resumeai.ValidationError
		breakerErr *resumeai.BreakerOpenError
	)

	switch {
	case errors.Is(err, resumeai.ErrUnauthorized):
		writeBody(w, http.StatusUnauthorized, respond.ErrorBody{Message: msgUnauthorized, RequestID: requestID})

	case errors.As(err, &quotaErr):
		retryAfter := quotaErr.RetryAfterSeconds()
		setQuotaHeaders(w, quotaErr.Decision)
		w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
		writeBody(w, http.StatusTooManyRequests, respond.ErrorBody{
			Message:    msgRateLimited,
			RequestID:  requestID,
			RetryAfter: &retryAfter,
		})

	case errors.As(err, &validErr):
		writeBody(w, http.StatusBadRequest, respond.ErrorBody{Message: validErr.Message, RequestID: requestID})

	case errors.As(err, &breakerErr):
		retryAfter := breakerErr.RetryAfterSeconds()
		w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
		writeBody(w, http.StatusServiceUnavailable, respond.ErrorBody{
			Message:    msgBreakerOpen,
			RequestID:  requestID,
			RetryAfter: &retryAfter,
		})

	case errors.Is(err, resumeai.ErrBreakerOpen):
		writeBody(w, http.StatusServiceUnavailable, respond.ErrorBody{Message: msgBreakerOpen, RequestID: requestID})

	case errors.Is(err, resumeai.ErrProviderUnavailable), errors.Is(err, resumeai.ErrProviderFailed):
		writeBody(w, http.StatusServiceUnavailable, respond.ErrorBody{Message: msgUnavailable, RequestID: requestID})

	case errors.Is(err, context.Canceled):
		logging.FromContext(ctx).DebugContext(ctx, "AI request cancelled")
		w.WriteHeader(statusClientClosedRequest)

	default:
		logging.FromContext(ctx).ErrorContext(ctx, "AI request failed",
			slog.String("error", respond.SanitizeError(err)))
		writeBody(w, http.StatusInternalServerError, respond.ErrorBody{Message: failureMsg, RequestID: requestID})
	}
}

func writeBody(w http.ResponseWriter, code int, body respond.ErrorBody) {
	if body.RequestID != "" {
		w.Header().Set(requestid.RequestIDHeader, body.RequestID)
	}
	respond.JSON(w, code, body)
}

// setQuotaHeaders is a no-op when quotas are disabled.
func setQuotaHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	if d == nil {
		return
	}
	h := w.Header()
	h.Set(headerLimit, strconv.Itoa(d.Limit))
	h.Set(headerRemaining, strconv.Itoa(d.Remaining))
	h.Set(headerReset, strconv.Itoa(d.ResetInSeconds()))
}
