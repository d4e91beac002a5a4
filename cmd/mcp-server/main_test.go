package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
	"github.com/leonpanjtar/metaforge-sub002/internal/reporting"
)

type stubDeployer struct {
	got    deploy.Request
	report *deploy.Report
	err    error
}

func (s *stubDeployer) Deploy(_ context.Context, req deploy.Request) (*deploy.Report, error) {
	s.got = req
	return s.report, s.err
}

type stubReporter struct{ days int }

func (s *stubReporter) PlacementReport(_ context.Context, id string, days int) (*reporting.PlacementSummary, error) {
	s.days = days
	return reporting.Summarize(id, days, nil), nil
}

func TestDeployCombinations(t *testing.T) {
	d := &stubDeployer{report: &deploy.Report{
		BatchID:  "b1",
		Deployed: []deploy.DeployedAd{{CombinationID: "c1", ExternalAdRef: "ad_1"}},
		Failed:   []deploy.ItemError{},
	}}
	s := &ToolServer{deployer: d, logger: zap.NewNop()}

	_, out, err := s.DeployCombinations(context.Background(), nil, DeployInput{
		UserID: "u1", PlacementID: "pl1", CombinationIDs: []string{"c1"}, Status: "ACTIVE",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Deployed)
	assert.Equal(t, "b1", out.BatchID)
	assert.Equal(t, "ACTIVE", d.got.Status)
}

func TestDeployCombinationsPrerequisiteKeepsReport(t *testing.T) {
	e := &deploy.Error{Kind: deploy.KindPrerequisiteUnavailable, Message: "no page"}
	d := &stubDeployer{err: e, report: &deploy.Report{Failed: []deploy.ItemError{{CombinationID: "c1", Kind: e.Kind}}}}
	s := &ToolServer{deployer: d, logger: zap.NewNop()}

	_, out, err := s.DeployCombinations(context.Background(), nil, DeployInput{UserID: "u1", PlacementID: "pl1", CombinationIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Failed)
}

func TestDeployCombinationsRequestError(t *testing.T) {
	d := &stubDeployer{err: &deploy.Error{Kind: deploy.KindForbidden, Message: "not allowed"}}
	s := &ToolServer{deployer: d, logger: zap.NewNop()}

	_, _, err := s.DeployCombinations(context.Background(), nil, DeployInput{UserID: "u1", PlacementID: "pl1", CombinationIDs: []string{"c1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestPlacementReportTool(t *testing.T) {
	rep := &stubReporter{}
	s := &ToolServer{reporter: rep, logger: zap.NewNop()}

	_, out, err := s.PlacementReport(context.Background(), nil, ReportInput{PlacementID: "pl1"})
	require.NoError(t, err)
	assert.Equal(t, "pl1", out.PlacementID)
	assert.Equal(t, 7, rep.days)

	_, _, err = s.PlacementReport(context.Background(), nil, ReportInput{})
	assert.Error(t, err)

	s.reporter = nil
	_, _, err = s.PlacementReport(context.Background(), nil, ReportInput{PlacementID: "pl1"})
	assert.Error(t, err)
}
