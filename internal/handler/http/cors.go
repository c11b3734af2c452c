package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	envconfig "resume-gateway/pkg/config"
)

// AnyOrigin in AllowedOrigins admits every origin.
const AnyOrigin = "*"

// CORSConfig holds the cross-origin policy for the browser client.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins, or AnyOrigin.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string

	// ExposedHeaders are readable by client scripts. The quota and request id
	// headers must be exposed for the resume builder to show remaining quota.
	ExposedHeaders []string

	// MaxAge is how long a preflight result may be cached, in seconds.
	MaxAge int
}

// DefaultCORSConfig admits any origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{AnyOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         86400,
	}
}

// LoadCORSConfig reads CORS_ALLOWED_ORIGINS, CORS_ALLOWED_HEADERS and
// CORS_MAX_AGE on top of DefaultCORSConfig.
func LoadCORSConfig() (CORSConfig, error) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = envconfig.GetEnvStringList("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.AllowedHeaders = envconfig.GetEnvStringList("CORS_ALLOWED_HEADERS", cfg.AllowedHeaders)
	cfg.MaxAge = envconfig.GetEnvPositiveInt("CORS_MAX_AGE", cfg.MaxAge)

	for _, origin := range cfg.AllowedOrigins {
		if err := validateOrigin(origin); err != nil {
			return CORSConfig{}, err
		}
	}
	return cfg, nil
}

func validateOrigin(origin string) error {
	if origin == AnyOrigin {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin URL %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must use http or https scheme: %s", origin)
	}
	if u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("origin must be scheme://host[:port] only: %s", origin)
	}
	if strings.HasSuffix(origin, "/") {
		return fmt.Errorf("origin must not have trailing slash: %s", origin)
	}
	return nil
}

// CORS answers preflight requests and adds CORS headers to requests from
// allowed origins. Requests from other origins pass through without headers,
// and the browser blocks the response.
func CORS(cfg CORSConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	anyOrigin := false
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == AnyOrigin {
			anyOrigin = true
		}
		allowed[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			if _, ok := allowed[origin]; !ok && !anyOrigin {
				logger.Warn("CORS: origin not allowed",
					slog.String("origin", origin),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", AnyOrigin)
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
