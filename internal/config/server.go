package config

import (
	"errors"
	"fmt"
	"time"

	envconfig "resume-gateway/pkg/config"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int
	Version         string
	JWTSecret       string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	// OTLPEndpoint is the OTLP/gRPC collector address. Empty disables export.
	OTLPEndpoint string
}

// weakSecrets are rejected as JWT secrets along with their "123" variants.
var weakSecrets = []string{"secret", "password", "test", "admin", "default"}

// LoadServerConfig loads server configuration from environment variables.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:            envconfig.GetEnvPositiveInt("PORT", 8080),
		Version:         envconfig.GetEnvString("VERSION", "dev"),
		JWTSecret:       envconfig.GetEnvString("JWT_SECRET", ""),
		MaxBodyBytes:    int64(envconfig.GetEnvPositiveInt("MAX_BODY_BYTES", 1<<20)),
		ShutdownTimeout: envconfig.GetEnvPositiveDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		OTLPEndpoint:    envconfig.GetEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := ValidateJWTSecret(cfg.JWTSecret); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ValidateJWTSecret enforces a minimum of 32 characters (256 bits) and rejects common weak values.
func ValidateJWTSecret(secret string) error {
	if secret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if len(secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters (256 bits)")
	}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			return fmt.Errorf("JWT_SECRET must not be a common weak value")
		}
	}
	return nil
}
