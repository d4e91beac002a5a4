// Package app wires configuration into the deployment pipeline shared by the
// HTTP server and the MCP server.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/analytics"
	"github.com/leonpanjtar/metaforge-sub002/internal/auth"
	"github.com/leonpanjtar/metaforge-sub002/internal/config"
	"github.com/leonpanjtar/metaforge-sub002/internal/db"
	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
	"github.com/leonpanjtar/metaforge-sub002/internal/insights"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/payload"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
	"github.com/leonpanjtar/metaforge-sub002/internal/ratelimit"
	"github.com/leonpanjtar/metaforge-sub002/internal/reporting"
)

// App holds the long lived components of a process.
type App struct {
	Backends     *db.Backends
	Analytics    *analytics.Analytics
	Store        models.Store
	Client       platform.Client
	Orchestrator *deploy.Orchestrator
	// Reporter and Syncer are nil when CLICKHOUSE_DSN is unset.
	Reporter reporting.Reporter
	Syncer   *insights.Syncer
}

// New opens the configured backends and assembles the pipeline.
func New(cfg config.Config, logger *zap.Logger, metrics observability.MetricsRegistry) (*App, error) {
	backends, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	var client platform.Client = platform.NewHTTPClient(cfg.PlatformBaseURL, cfg.PlatformAPIVersion,
		cfg.PlatformAccessToken, cfg.PlatformCallTimeout, logger, metrics)
	if cfg.PlatformRateLimitEnabled {
		client = platform.NewThrottledClient(client, ratelimit.NewAccountLimiter(ratelimit.Config{
			Capacity:   cfg.PlatformRateLimitCapacity,
			RefillRate: cfg.PlatformRateLimitRefillRate,
			Enabled:    true,
		}, metrics))
	}
	a := Assemble(cfg, backends.Postgres, client, Locker(backends), logger, metrics)
	a.Backends = backends

	if cfg.ClickHouseDSN != "" {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN, metrics)
		if err != nil {
			backends.Close()
			return nil, fmt.Errorf("init clickhouse: %w", err)
		}
		a.Analytics = ch
		a.Reporter = reporting.ClickHouseReporter{DB: ch.DB}
		a.Syncer = insights.NewSyncer(a.Store, client, ch, cfg.InsightsLookbackDays, logger, metrics)
	}
	return a, nil
}

// Locker prefers Redis so several processes share deployment locks.
func Locker(b *db.Backends) deploy.Locker {
	if b != nil && b.Redis != nil {
		return b.Redis
	}
	return deploy.NewLocalLocker()
}

// Assemble builds the pipeline over already opened dependencies.
func Assemble(cfg config.Config, store models.Store, client platform.Client, locker deploy.Locker,
	logger *zap.Logger, metrics observability.MetricsRegistry) *App {
	defaults := payload.Defaults{PublisherPlatforms: cfg.DefaultPublisherPlatforms}

	provisioner := deploy.NewProvisioner(store, client, locker, cfg.LockTTL, defaults, time.Now, logger, metrics)
	media := deploy.NewMediaResolver(store, client, locker, cfg.LockTTL, logger, metrics)
	deployer := deploy.NewDeployer(store, client, media, time.Now, logger, metrics)
	pages := deploy.NewPageResolver(logger, deploy.DefaultPageStrategies(client, cfg.PlatformPageOwner)...)

	orch := deploy.NewOrchestrator(store, auth.NewAuthorizer(store), provisioner, pages, deployer,
		deploy.OrchestratorConfig{
			Concurrency:   cfg.DeployConcurrency,
			DefaultStatus: cfg.DefaultAdStatus,
		}, logger, metrics)

	return &App{
		Store:        store,
		Client:       client,
		Orchestrator: orch,
	}
}

// Close releases every connection opened by New.
func (a *App) Close() {
	a.Analytics.Close()
	a.Backends.Close()
}
