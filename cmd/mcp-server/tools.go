package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
	"github.com/leonpanjtar/metaforge-sub002/internal/reporting"
)

type DeployInput struct {
	UserID         string   `json:"user_id"`
	PlacementID    string   `json:"placement_id"`
	CombinationIDs []string `json:"combination_ids"`
	Status         string   `json:"status,omitempty"`
}

type ReportInput struct {
	PlacementID string `json:"placement_id"`
	Days        int    `json:"days,omitempty"`
}

type batchDeployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*deploy.Report, error)
}

// ToolServer holds the dependencies of the MCP tools.
type ToolServer struct {
	deployer batchDeployer
	reporter reporting.Reporter
	logger   *zap.Logger
}

// DeployCombinations runs one deployment batch. A batch aborted on a prerequisite still
// returns its report so the caller sees which combinations failed and why.
func (s *ToolServer) DeployCombinations(ctx context.Context, req *mcp.CallToolRequest, input DeployInput) (*mcp.CallToolResult, deploy.Response, error) {
	report, err := s.deployer.Deploy(ctx, deploy.Request{
		UserID:         input.UserID,
		PlacementID:    input.PlacementID,
		CombinationIDs: input.CombinationIDs,
		Status:         input.Status,
	})
	if report != nil {
		if err != nil {
			s.logger.Warn("batch aborted", zap.String("placement_id", input.PlacementID), zap.Error(err))
		}
		return nil, report.Response(), nil
	}
	var de *deploy.Error
	if errors.As(err, &de) {
		return nil, deploy.Response{}, fmt.Errorf("%s: %s", de.Kind, de.Message)
	}
	return nil, deploy.Response{}, err
}

// PlacementReport returns the latest synced metrics of a placement.
func (s *ToolServer) PlacementReport(ctx context.Context, req *mcp.CallToolRequest, input ReportInput) (*mcp.CallToolResult, reporting.PlacementSummary, error) {
	if s.reporter == nil {
		return nil, reporting.PlacementSummary{}, errors.New("analytics database unavailable")
	}
	if input.PlacementID == "" {
		return nil, reporting.PlacementSummary{}, errors.New("placement_id is required")
	}
	days := input.Days
	if days <= 0 {
		days = 7
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	summary, err := s.reporter.PlacementReport(ctx, input.PlacementID, min(days, 365))
	if err != nil {
		return nil, reporting.PlacementSummary{}, fmt.Errorf("generate report: %w", err)
	}
	return nil, *summary, nil
}

func registerTools(server *mcp.Server, s *ToolServer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy_combinations",
		Description: "Deploy creative combinations of a placement as ads on the advertising platform",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User on whose behalf the batch runs",
				},
				"placement_id": map[string]interface{}{
					"type":        "string",
					"description": "Placement whose combinations are deployed",
				},
				"combination_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Combinations to deploy, at least one",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"ACTIVE", "PAUSED"},
					"description": "Status of the created ads (optional, defaults to PAUSED)",
				},
			},
			"required": []string{"user_id", "placement_id", "combination_ids"},
		},
	}, s.DeployCombinations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "placement_report",
		Description: "Report delivery metrics of the deployed combinations of a placement",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"placement_id": map[string]interface{}{
					"type":        "string",
					"description": "Placement to report on",
				},
				"days": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     365,
					"description": "Days of snapshots to consider (optional, defaults to 7)",
				},
			},
			"required": []string{"placement_id"},
		},
	}, s.PlacementReport)
}
