package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncAPIKeyCreated()                                 {}
func (n *NoopRecorder) IncAPIKeyDeleted()                                 {}
func (n *NoopRecorder) IncAPIKeyListed()                                  {}
func (n *NoopRecorder) IncAuthResult(authType, result string)             {}
func (n *NoopRecorder) IncAuthzDecision(action string, allowed bool)      {}
func (n *NoopRecorder) IncAuditEventPublished(status string)              {}
func (n *NoopRecorder) ObserveRequestDuration(string, int, time.Duration) {}
