// Package resilience groups the fault tolerance primitives used around the AI provider.
//
// Subpackages:
//   - circuitbreaker: stops calling a failing provider and probes its recovery
//   - retry: re-invokes transient failures with capped exponential backoff
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("ai-provider"))
//	text, err := circuitbreaker.Run(cb, func() (string, error) {
//	    return retry.WithBackoffValue(ctx, retry.AIAPIConfig(), func() (string, error) {
//	        return provider.Generate(ctx, prompt)
//	    })
//	})
package resilience
