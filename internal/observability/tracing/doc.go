// Package tracing wires OpenTelemetry into the gateway.
//
// Setup installs the W3C trace context propagator and a TracerProvider. When
// an OTLP endpoint is configured, spans are batched to it over gRPC; otherwise
// spans are still created so that trace ids appear in logs, but nothing is
// exported.
//
// Middleware starts one server span per HTTP request. The capability pipeline
// and the AI provider add child spans through GetTracer.
package tracing
