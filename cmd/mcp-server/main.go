package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/app"
	"github.com/leonpanjtar/metaforge-sub002/internal/config"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// stdout carries the MCP stream, so logs go to stderr
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.MessageKey = "msg"

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named(cfg.ServiceName + "-mcp").With(zap.String("service", cfg.ServiceName+"-mcp"))

	a, err := app.New(cfg, logger, observability.NewNoOpRegistry())
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()
	if a.Reporter == nil {
		logger.Warn("CLICKHOUSE_DSN not set, placement_report is unavailable")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServiceName,
		Version: "1.0.0",
	}, nil)
	registerTools(server, &ToolServer{deployer: a.Orchestrator, reporter: a.Reporter, logger: logger})

	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP Server running via stdio")
	if err := server.Run(context.Background(), transport); err != nil {
		logger.Error("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
