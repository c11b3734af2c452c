// Package config provides helpers for reading typed configuration from environment variables.
//
// Every helper returns the supplied default when the variable is unset or empty.
// Values that cannot be parsed are reported with slog.Warn and replaced by the
// default, so a typo in a deployment never prevents the gateway from starting.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the value of key or defaultValue when it is unset or empty.
//
// Example:
//
//	provider := GetEnvString("AI_PROVIDER", "gemini")
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns key parsed as an integer.
//
// Example:
//
//	limit := GetEnvInt("RATE_LIMIT_AI", 10)
func GetEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvPositiveInt is GetEnvInt for values that must be greater than zero.
func GetEnvPositiveInt(key string, defaultValue int) int {
	value := GetEnvInt(key, defaultValue)
	if value <= 0 {
		slog.Warn("non-positive integer value for environment variable, using default",
			slog.String("key", key),
			slog.Int("value", value),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvFloat returns key parsed as a float64.
func GetEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		slog.Warn("invalid float value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Float64("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvBool returns key parsed with strconv.ParseBool ("1", "t", "true", "0", "f", "false", ...).
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvDuration returns key parsed with time.ParseDuration ("1m", "30s", "1h30m").
//
// Example:
//
//	timeout := GetEnvDuration("AI_TIMEOUT", 60*time.Second)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvPositiveDuration is GetEnvDuration for values that must be greater than zero.
func GetEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	value := GetEnvDuration(key, defaultValue)
	if err := ValidatePositiveDuration(value); err != nil {
		slog.Warn("invalid duration for environment variable, using default",
			slog.String("key", key),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvStringList returns a comma-separated list. Items are trimmed and empty items dropped.
//
// Example:
//
//	// AI_RETRY_MARKERS="429, timeout, econnreset"
//	markers := GetEnvStringList("AI_RETRY_MARKERS", retry.DefaultMarkers)
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
