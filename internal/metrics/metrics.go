// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Label values shared by recorders.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// API key lifecycle
	IncAPIKeyCreated()
	IncAPIKeyDeleted()
	IncAPIKeyListed()

	// Authentication and authorization
	IncAuthResult(authType, result string)
	IncAuthzDecision(action string, allowed bool)

	// Audit stream fan-out; status: "success" or "dropped"
	IncAuditEventPublished(status string)

	// HTTP
	ObserveRequestDuration(route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
