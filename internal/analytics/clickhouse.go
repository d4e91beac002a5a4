// Package analytics stores advertising platform insights in ClickHouse.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

// InsightsRecorder persists insight snapshots.
// Implementations return ErrUnavailable when the underlying storage is not configured.
type InsightsRecorder interface {
	RecordInsights(ctx context.Context, rows []InsightRow) error
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// InsightRow is one snapshot of an ad's cumulative metrics over [DateStart, DateStop].
// Later snapshots of the same window supersede earlier ones.
type InsightRow struct {
	SnapshotAt    time.Time `json:"snapshot_at"`
	PlacementID   string    `json:"placement_id"`
	CombinationID string    `json:"combination_id"`
	AdRef         string    `json:"ad_ref"`
	DateStart     time.Time `json:"date_start"`
	DateStop      time.Time `json:"date_stop"`
	Impressions   int64     `json:"impressions"`
	Clicks        int64     `json:"clicks"`
	CTR           float64   `json:"ctr"`
	Spend         float64   `json:"spend"`
	Frequency     float64   `json:"frequency"`
}

const createInsightsTable = `CREATE TABLE IF NOT EXISTS ad_insights (
       snapshot_at    DateTime,
       placement_id   String,
       combination_id String,
       ad_ref         String,
       date_start     Date,
       date_stop      Date,
       impressions    UInt64,
       clicks         UInt64,
       ctr            Float64,
       spend          Float64,
       frequency      Float64
   ) ENGINE=MergeTree() ORDER BY (placement_id, combination_id, snapshot_at)`

// InitClickHouse connects to ClickHouse and ensures the insights table exists.
func InitClickHouse(dsn string, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(10)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), createInsightsTable); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db, Metrics: metrics}, nil
}

// RecordInsights inserts rows in a single batch.
func (a *Analytics) RecordInsights(ctx context.Context, rows []InsightRow) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insights batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ad_insights (snapshot_at, placement_id, combination_id, ad_ref,
		date_start, date_stop, impressions, clicks, ctr, spend, frequency)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insights batch: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.SnapshotAt, r.PlacementID, r.CombinationID, r.AdRef,
			r.DateStart, r.DateStop, uint64(r.Impressions), uint64(r.Clicks), r.CTR, r.Spend, r.Frequency); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append insight row %s: %w", r.CombinationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insights batch: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
