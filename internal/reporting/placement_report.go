// Package reporting builds placement performance reports from the insights
// snapshots stored in ClickHouse.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Metrics holds delivery figures for one combination or a whole placement.
// Spend is in the ad account currency. CTR is a percentage (0-100).
type Metrics struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	CTR         float64 `json:"ctr"`
	CPM         float64 `json:"cpm"`
	CPC         float64 `json:"cpc"`
}

// CombinationMetrics are the latest synced metrics of one deployed combination.
type CombinationMetrics struct {
	CombinationID string    `json:"combinationId"`
	AdRef         string    `json:"externalAdRef"`
	Frequency     float64   `json:"frequency"`
	SnapshotAt    time.Time `json:"snapshotAt"`
	Metrics
}

// PlacementSummary is the report returned for a placement.
type PlacementSummary struct {
	PlacementID  string               `json:"placementId"`
	Days         int                  `json:"days"`
	Total        Metrics              `json:"total"`
	Combinations []CombinationMetrics `json:"combinations"`
}

// Reporter generates placement reports. The API and MCP server depend on it
// rather than on a database handle.
type Reporter interface {
	PlacementReport(ctx context.Context, placementID string, days int) (*PlacementSummary, error)
}

// ClickHouseReporter reads the ad_insights table.
type ClickHouseReporter struct {
	DB *sql.DB
}

func (r ClickHouseReporter) PlacementReport(ctx context.Context, placementID string, days int) (*PlacementSummary, error) {
	return GeneratePlacementReport(ctx, r.DB, placementID, days)
}

// GeneratePlacementReport takes the most recent snapshot per combination
// within the last days and aggregates them into a summary ordered by CTR.
func GeneratePlacementReport(ctx context.Context, db *sql.DB, placementID string, days int) (*PlacementSummary, error) {
	if days <= 0 {
		days = 7
	}
	combos, err := latestSnapshots(ctx, db, placementID, days)
	if err != nil {
		return nil, fmt.Errorf("get combination metrics: %w", err)
	}
	return Summarize(placementID, days, combos), nil
}

func latestSnapshots(ctx context.Context, db *sql.DB, placementID string, days int) ([]CombinationMetrics, error) {
	query := `
		SELECT
			combination_id,
			argMax(ad_ref, snapshot_at) as ad_ref,
			max(snapshot_at) as latest,
			argMax(impressions, snapshot_at) as impressions,
			argMax(clicks, snapshot_at) as clicks,
			argMax(spend, snapshot_at) as spend,
			argMax(frequency, snapshot_at) as frequency
		FROM ad_insights
		WHERE placement_id = ?
			AND snapshot_at >= now() - INTERVAL ? DAY
		GROUP BY combination_id`

	rows, err := db.QueryContext(ctx, query, placementID, days)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []CombinationMetrics
	for rows.Next() {
		var c CombinationMetrics
		var impressions, clicks uint64
		if err := rows.Scan(&c.CombinationID, &c.AdRef, &c.SnapshotAt,
			&impressions, &clicks, &c.Spend, &c.Frequency); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		c.Impressions = int64(impressions)
		c.Clicks = int64(clicks)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Summarize fills derived metrics and totals. Combinations are sorted by CTR
// descending, ties broken by combination id.
func Summarize(placementID string, days int, combos []CombinationMetrics) *PlacementSummary {
	s := &PlacementSummary{PlacementID: placementID, Days: days, Combinations: combos}
	for i := range s.Combinations {
		c := &s.Combinations[i]
		c.Metrics = Derive(c.Impressions, c.Clicks, c.Spend)
		s.Total.Impressions += c.Impressions
		s.Total.Clicks += c.Clicks
		s.Total.Spend += c.Spend
	}
	s.Total = Derive(s.Total.Impressions, s.Total.Clicks, s.Total.Spend)
	sort.SliceStable(s.Combinations, func(i, j int) bool {
		a, b := s.Combinations[i], s.Combinations[j]
		if a.CTR != b.CTR {
			return a.CTR > b.CTR
		}
		return a.CombinationID < b.CombinationID
	})
	if s.Combinations == nil {
		s.Combinations = []CombinationMetrics{}
	}
	return s
}

// Derive computes CTR, CPM and CPC.
func Derive(impressions, clicks int64, spend float64) Metrics {
	m := Metrics{Impressions: impressions, Clicks: clicks, Spend: spend}
	if impressions > 0 {
		m.CTR = float64(clicks) / float64(impressions) * 100
		m.CPM = spend / float64(impressions) * 1000
	}
	if clicks > 0 {
		m.CPC = spend / float64(clicks)
	}
	return m
}
