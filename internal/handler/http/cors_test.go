package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	restricted := DefaultCORSConfig()
	restricted.AllowedOrigins = []string{"https://resume.example.com"}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantHandled bool
	}{
		{"same origin", restricted, http.MethodPost, "", false, http.StatusOK, "", true},
		{"allowed origin", restricted, http.MethodPost, "https://resume.example.com", false, http.StatusOK, "https://resume.example.com", true},
		{"disallowed origin", restricted, http.MethodPost, "https://evil.example.com", false, http.StatusOK, "", true},
		{"any origin", DefaultCORSConfig(), http.MethodPost, "http://localhost:3000", false, http.StatusOK, "*", true},
		{"preflight", restricted, http.MethodOptions, "https://resume.example.com", true, http.StatusNoContent, "https://resume.example.com", false},
		{"options without preflight header", restricted, http.MethodOptions, "https://resume.example.com", false, http.StatusOK, "https://resume.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := captureLogger()
			handled := false
			h := CORS(tt.cfg, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/ai/generate-summary", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantHandled, handled)
			if tt.preflight {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
				assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
			}
			if tt.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-RateLimit-Remaining")
			}
		})
	}
}

func TestLoadCORSConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadCORSConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{AnyOrigin}, cfg.AllowedOrigins)
	})

	t.Run("origin list", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, http://localhost:3000")
		cfg, err := LoadCORSConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	})

	for _, bad := range []string{"ftp://a.example.com", "https://a.example.com/app", "https://a.example.com/", "not a url"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			t.Setenv("CORS_ALLOWED_ORIGINS", bad)
			_, err := LoadCORSConfig()
			assert.Error(t, err)
		})
	}
}
