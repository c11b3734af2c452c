// Package metrics defines the gateway's Prometheus collectors.
//
// HTTP metrics are recorded by the HTTP middleware. AI metrics are recorded by
// the capability pipeline and by the provider circuit breaker. Everything is
// registered with the default registry and served on /metrics.
package metrics
