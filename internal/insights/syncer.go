// Package insights periodically pulls delivery metrics of deployed ads from the platform.
package insights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leonpanjtar/metaforge-sub002/internal/analytics"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// Syncer fetches insights for every deployed combination and records them.
type Syncer struct {
	store        models.Store
	client       platform.Client
	recorder     analytics.InsightsRecorder
	lookbackDays int
	parallelism  int
	now          func() time.Time
	logger       *zap.Logger
	metrics      observability.MetricsRegistry
}

// NewSyncer creates a Syncer looking back lookbackDays (at least 1) on each run.
func NewSyncer(store models.Store, client platform.Client, recorder analytics.InsightsRecorder, lookbackDays int,
	logger *zap.Logger, metrics observability.MetricsRegistry) *Syncer {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	return &Syncer{
		store:        store,
		client:       client,
		recorder:     recorder,
		lookbackDays: lookbackDays,
		parallelism:  4,
		now:          time.Now,
		logger:       logger,
		metrics:      metrics,
	}
}

// RunOnce syncs every deployed combination and returns the number of rows recorded.
// A failed fetch for one ad is logged and skipped.
func (s *Syncer) RunOnce(ctx context.Context) (int, error) {
	combos, err := s.store.ListDeployedCombinations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list deployed combinations: %w", err)
	}
	if len(combos) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	until := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dates := platform.DateRange{Since: until.AddDate(0, 0, -(s.lookbackDays - 1)), Until: until}

	var mu sync.Mutex
	rows := make([]analytics.InsightRow, 0, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, c := range combos {
		g.Go(func() error {
			ins, err := s.client.GetInsights(gctx, c.ExternalAdRef, dates)
			if err != nil {
				s.metrics.IncrementInsightsSync("failed")
				s.logger.Warn("fetch insights",
					zap.String("combination_id", c.ID),
					zap.String("ad_ref", c.ExternalAdRef),
					zap.Error(err))
				return nil
			}
			s.metrics.IncrementInsightsSync("fetched")
			mu.Lock()
			rows = append(rows, analytics.InsightRow{
				SnapshotAt:    now,
				PlacementID:   c.PlacementID,
				CombinationID: c.ID,
				AdRef:         c.ExternalAdRef,
				DateStart:     dates.Since,
				DateStop:      dates.Until,
				Impressions:   ins.Impressions,
				Clicks:        ins.Clicks,
				CTR:           ins.CTR,
				Spend:         ins.Spend,
				Frequency:     ins.Frequency,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.recorder.RecordInsights(ctx, rows); err != nil {
		return 0, fmt.Errorf("record insights: %w", err)
	}
	return len(rows), nil
}

// Run syncs every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("insights sync", zap.Error(err))
				continue
			}
			s.logger.Info("insights synced", zap.Int("rows", n))
		case <-ctx.Done():
			return
		}
	}
}
