package analytics

import (
	"context"
	"errors"
	"testing"
)

func TestRecordInsightsUnavailable(t *testing.T) {
	var a *Analytics
	if err := a.RecordInsights(context.Background(), []InsightRow{{CombinationID: "c1"}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := (&Analytics{}).RecordInsights(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for missing DB, got %v", err)
	}
}

func TestMockAnalyticsRecords(t *testing.T) {
	m := NewMockAnalytics()
	if err := m.RecordInsights(context.Background(), []InsightRow{{CombinationID: "c1"}, {CombinationID: "c2"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := len(m.Rows()); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}

	m.Err = errors.New("boom")
	if err := m.RecordInsights(context.Background(), []InsightRow{{CombinationID: "c3"}}); err == nil {
		t.Fatal("expected error")
	}
	if got := len(m.Rows()); got != 2 {
		t.Fatalf("expected rows unchanged, got %d", got)
	}
}
