package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records counter increments in memory so tests can assert on them.
type MockMetricsRegistry struct {
	mu       sync.Mutex
	counters map[string]int
}

// Count returns how many times the named counter (e.g. "deployments:deployed") was incremented.
func (m *MockMetricsRegistry) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *MockMetricsRegistry) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	m.counters[name]++
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.inc("requests:" + endpoint + ":" + status)
}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementPlatformCalls(operation, outcome string) {
	m.inc("platform:" + operation + ":" + outcome)
}
func (m *MockMetricsRegistry) RecordPlatformLatency(operation string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementCombinationDeployments(outcome string) {
	m.inc("deployments:" + outcome)
}

func (m *MockMetricsRegistry) IncrementPlacementProvisioning(result string) {
	m.inc("provisioning:" + result)
}

func (m *MockMetricsRegistry) IncrementMediaResolutions(kind, source string) {
	m.inc("media:" + kind + ":" + source)
}
func (m *MockMetricsRegistry) RecordBatchDuration(duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementInsightsSync(outcome string) {
	m.inc("insights:" + outcome)
}

func (m *MockMetricsRegistry) IncrementRateLimitRequests(account string) {
	m.inc("ratelimit:requests:" + account)
}

func (m *MockMetricsRegistry) IncrementRateLimitHits(account string) {
	m.inc("ratelimit:hits:" + account)
}
