// Package auth authenticates callers with HS256 JWT bearer tokens.
//
// Tokens are issued by the external identity provider. The subject claim is
// the caller identity that quotas are keyed on.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resume-gateway/internal/handler/http/respond"
	"resume-gateway/internal/observability/logging"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
	errMissingSub   = errors.New("missing sub claim")
)

// Middleware rejects requests without a valid bearer token with 401 and stores
// the token subject in the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			identity, err := authenticate(r.Header.Get("Authorization"), secret)
			recordAuthDuration(time.Since(start))
			if err != nil {
				recordAuthRequest(resultFailure(err))
				logging.FromContext(r.Context()).WarnContext(r.Context(), "authentication failed",
					slog.String("reason", err.Error()))
				respond.Message(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			recordAuthRequest("success")
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the authenticated identity, or "" when the request was not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(ctxIdentity).(string)
	return identity
}

func authenticate(header string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingToken
	}
	raw := strings.TrimSpace(header[len(prefix):])

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", jwt.ErrTokenExpired
		}
		return "", errInvalidToken
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errMissingSub
	}
	return sub, nil
}

func resultFailure(err error) string {
	switch {
	case errors.Is(err, errMissingToken):
		return "missing"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
