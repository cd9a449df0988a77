package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	APIKeysCreated  uint64
	APIKeysDeleted  uint64
	APIKeysListed   uint64
	AuthResults     map[string]uint64 // "<type>:<result>"
	AuthzAllowed    map[string]uint64 // by action
	AuthzDenied     map[string]uint64 // by action
	AuditPublished  map[string]uint64 // by status
	RequestCount    uint64
	RequestTotalDur time.Duration
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu sync.Mutex
	s  Snapshot
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{s: Snapshot{
		AuthResults:    map[string]uint64{},
		AuthzAllowed:   map[string]uint64{},
		AuthzDenied:    map[string]uint64{},
		AuditPublished: map[string]uint64{},
	}}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.s
	out.AuthResults = copyCounts(m.s.AuthResults)
	out.AuthzAllowed = copyCounts(m.s.AuthzAllowed)
	out.AuthzDenied = copyCounts(m.s.AuthzDenied)
	out.AuditPublished = copyCounts(m.s.AuditPublished)
	return out
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *InMemoryRecorder) IncAPIKeyCreated() {
	m.mu.Lock()
	m.s.APIKeysCreated++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAPIKeyDeleted() {
	m.mu.Lock()
	m.s.APIKeysDeleted++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAPIKeyListed() {
	m.mu.Lock()
	m.s.APIKeysListed++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAuthResult(authType, result string) {
	m.mu.Lock()
	m.s.AuthResults[authType+":"+result]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAuthzDecision(action string, allowed bool) {
	m.mu.Lock()
	if allowed {
		m.s.AuthzAllowed[action]++
	} else {
		m.s.AuthzDenied[action]++
	}
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.mu.Lock()
	m.s.AuditPublished[status]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) ObserveRequestDuration(_ string, _ int, duration time.Duration) {
	m.mu.Lock()
	m.s.RequestCount++
	m.s.RequestTotalDur += duration
	m.mu.Unlock()
}
