// Package observability groups the gateway's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog construction and context enrichment
//   - metrics: Prometheus collectors for HTTP traffic, capabilities and breakers
//   - tracing: OpenTelemetry setup and the HTTP server span middleware
package observability
