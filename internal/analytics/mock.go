package analytics

import (
	"context"
	"sync"
)

var _ InsightsRecorder = (*MockAnalytics)(nil)

// MockAnalytics keeps recorded insights in memory for tests.
type MockAnalytics struct {
	mu   sync.Mutex
	rows []InsightRow
	// Err, when set, is returned by RecordInsights instead of storing rows.
	Err error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

func (m *MockAnalytics) RecordInsights(_ context.Context, rows []InsightRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rows = append(m.rows, rows...)
	return nil
}

// Rows returns a copy of every recorded row.
func (m *MockAnalytics) Rows() []InsightRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InsightRow(nil), m.rows...)
}
