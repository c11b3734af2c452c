package ratelimit

import "time"

// NoOpMetrics implements Metrics and discards every observation.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a NoOpMetrics.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (m *NoOpMetrics) RecordAllowed(string)                      {}
func (m *NoOpMetrics) RecordDenied(string)                       {}
func (m *NoOpMetrics) RecordCheckDuration(string, time.Duration) {}
func (m *NoOpMetrics) RecordStoreError(string)                   {}
func (m *NoOpMetrics) SetActiveKeys(int)                         {}
func (m *NoOpMetrics) RecordCleanup(int)                         {}
func (m *NoOpMetrics) RecordGuardState(string)                   {}
