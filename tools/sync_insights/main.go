package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/leonpanjtar/metaforge-sub002/internal/app"
	"github.com/leonpanjtar/metaforge-sub002/internal/config"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

// sync_insights runs one insights sync for every deployed combination and prints
// how many rows were recorded.
func main() {
	_ = godotenv.Load()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var dsn string
	var days int
	var timeout time.Duration
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.IntVar(&days, "days", 0, "lookback in days (default INSIGHTS_LOOKBACK_DAYS)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	if dsn != "" {
		cfg.ClickHouseDSN = dsn
	}
	if days > 0 {
		cfg.InsightsLookbackDays = days
	}
	if cfg.ClickHouseDSN == "" {
		fmt.Fprintln(os.Stderr, "ClickHouse DSN required (-dsn or CLICKHOUSE_DSN)")
		os.Exit(1)
	}

	a, err := app.New(cfg, logger, observability.NewNoOpRegistry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := a.Syncer.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync insights: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"rows": n, "lookback_days": cfg.InsightsLookbackDays}); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}
