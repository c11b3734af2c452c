package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", strongSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("VERSION", "")
	t.Setenv("MAX_BODY_BYTES", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestLoadServerConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadServerConfig()
	assert.Nil(t, cfg)
	assert.EqualError(t, err, "JWT_SECRET must be set")
}

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"strong", strongSecret, false},
		{"too short", "short-secret", true},
		{"31 characters", strings.Repeat("a", 31), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJWTSecret(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
