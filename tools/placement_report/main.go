// Placement Report Tool prints the latest synced delivery metrics of every
// deployed combination of a placement.
//
// Usage:
//
//	go run ./tools/placement_report -placement-id=<id> -days=30
//
// Configuration:
//
//	-placement-id: Required. The placement to report on
//	-days: Optional. Days of insight snapshots to consider (default: 7)
//	-clickhouse-dsn: Optional. ClickHouse connection string (default: $CLICKHOUSE_DSN or tcp://localhost:9000)
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/leonpanjtar/metaforge-sub002/internal/reporting"
)

func main() {
	var (
		placementID = flag.String("placement-id", "", "Placement ID to generate report for")
		days        = flag.Int("days", 7, "Days of snapshots to include in report")
		dsn         = flag.String("clickhouse-dsn", getEnv("CLICKHOUSE_DSN", "tcp://localhost:9000"), "ClickHouse DSN")
	)
	flag.Parse()

	if *placementID == "" {
		fmt.Fprintf(os.Stderr, "Error: placement-id is required\n")
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("clickhouse", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
		}
	}()

	if err := db.PingContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging ClickHouse: %v\n", err)
		os.Exit(1)
	}

	summary, err := reporting.GeneratePlacementReport(context.Background(), db, *placementID, *days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	printPlacementReport(summary)
}

func printPlacementReport(s *reporting.PlacementSummary) {
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("                             PLACEMENT PERFORMANCE REPORT                          \n")
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("Placement ID: %s\n", s.PlacementID)
	fmt.Printf("Report Period: %d days (ending %s)\n", s.Days, time.Now().Format("2006-01-02"))
	fmt.Printf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	total := s.Total
	fmt.Printf("Total Impressions:  %s\n", formatNumber(total.Impressions))
	fmt.Printf("Total Clicks:       %s\n", formatNumber(total.Clicks))
	fmt.Printf("Total Spend:        %.2f\n", total.Spend)
	fmt.Printf("Overall CTR:        %.2f%%\n", total.CTR)
	fmt.Printf("Average CPM:        %.2f\n", total.CPM)
	if total.CPC > 0 {
		fmt.Printf("Average CPC:        %.2f\n", total.CPC)
	}
	fmt.Printf("\n")

	if len(s.Combinations) == 0 {
		fmt.Printf("No insights synced for this placement yet\n")
		return
	}

	fmt.Printf("Combination                          | Impressions | Clicks |   CTR   |   Spend   | Freq \n")
	fmt.Printf("-------------------------------------|-------------|--------|---------|-----------|------\n")
	for _, c := range s.Combinations {
		fmt.Printf("%-36s | %11s | %6s | %6.2f%% | %9.2f | %4.2f\n",
			c.CombinationID,
			formatNumber(c.Impressions),
			formatNumber(c.Clicks),
			c.CTR,
			c.Spend,
			c.Frequency,
		)
	}

	if len(s.Combinations) > 1 {
		best, worst := s.Combinations[0], s.Combinations[len(s.Combinations)-1]
		if worst.CTR > 0 && best.CTR > worst.CTR*2 {
			fmt.Printf("\nCombination %s is performing %.1fx better than %s\n",
				best.CombinationID, best.CTR/worst.CTR, worst.CombinationID)
		}
	}
}

// formatNumber adds thousands separators: 1234567 becomes "1,234,567".
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
