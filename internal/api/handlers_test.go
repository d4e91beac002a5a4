package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
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

type stubReporter struct {
	days int
	err  error
}

func (s *stubReporter) PlacementReport(_ context.Context, id string, days int) (*reporting.PlacementSummary, error) {
	s.days = days
	if s.err != nil {
		return nil, s.err
	}
	return reporting.Summarize(id, days, []reporting.CombinationMetrics{
		{CombinationID: "c1", Metrics: reporting.Metrics{Impressions: 100, Clicks: 5}},
	}), nil
}

func newTestServer(t *testing.T, d BatchDeployer, rep reporting.Reporter) (*Server, *mux.Router) {
	store := models.NewInMemoryStore()
	require.NoError(t, store.SavePlacement(context.Background(), &models.Placement{ID: "pl1", CampaignID: "cmp1", Name: "Spring"}))
	srv := NewServer(zap.NewNop(), store, d, rep, observability.NewNoOpRegistry())
	r := mux.NewRouter()
	srv.Routes(r)
	return srv, r
}

func doDeploy(r *mux.Router, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/placements/pl1/deploy", strings.NewReader(body))
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDeployHandler_Success(t *testing.T) {
	d := &stubDeployer{report: &deploy.Report{
		BatchID:  "b1",
		Deployed: []deploy.DeployedAd{{CombinationID: "c1", ExternalAdRef: "ad_1"}},
		Failed:   []deploy.ItemError{{CombinationID: "c2", Error: "no media", Kind: deploy.KindValidationFailed}},
	}}
	_, r := newTestServer(t, d, nil)

	rec := doDeploy(r, `{"combinationIds":["c1","c2"],"status":"ACTIVE"}`, "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "u1", d.got.UserID)
	assert.Equal(t, "pl1", d.got.PlacementID)
	assert.Equal(t, []string{"c1", "c2"}, d.got.CombinationIDs)
	assert.Equal(t, "ACTIVE", d.got.Status)

	var resp deploy.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 1, resp.Deployed)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "ad_1", resp.DeployedAds[0].ExternalAdRef)
	assert.Equal(t, deploy.KindValidationFailed, resp.Errors[0].Kind)
	assert.Equal(t, "b1", resp.BatchID)
}

func TestDeployHandler_MissingUser(t *testing.T) {
	d := &stubDeployer{}
	_, r := newTestServer(t, d, nil)

	rec := doDeploy(r, `{"combinationIds":["c1"]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, d.got.PlacementID)
}

func TestDeployHandler_InvalidJSON(t *testing.T) {
	_, r := newTestServer(t, &stubDeployer{}, nil)

	rec := doDeploy(r, `{"combinationIds":`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployHandler_RequestLevelFailures(t *testing.T) {
	cases := []struct {
		kind   deploy.Kind
		status int
	}{
		{deploy.KindRequestInvalid, http.StatusBadRequest},
		{deploy.KindForbidden, http.StatusForbidden},
		{deploy.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			d := &stubDeployer{err: &deploy.Error{Kind: tc.kind, Message: "nope"}}
			_, r := newTestServer(t, d, nil)

			rec := doDeploy(r, `{"combinationIds":["c1"]}`, "u1")
			assert.Equal(t, tc.status, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.kind, body.Kind)
			assert.Equal(t, "nope", body.Error)
		})
	}
}

func TestDeployHandler_PrerequisiteReturnsReport(t *testing.T) {
	e := &deploy.Error{Kind: deploy.KindPrerequisiteUnavailable, Message: "placement could not be provisioned"}
	d := &stubDeployer{
		err: e,
		report: &deploy.Report{BatchID: "b2", Failed: []deploy.ItemError{
			{CombinationID: "c1", Error: e.Message, Kind: e.Kind},
		}},
	}
	_, r := newTestServer(t, d, nil)

	rec := doDeploy(r, `{"combinationIds":["c1"]}`, "u1")
	assert.Equal(t, http.StatusFailedDependency, rec.Code)

	var resp deploy.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, deploy.KindPrerequisiteUnavailable, resp.Errors[0].Kind)
}

func TestGetPlacementHandler(t *testing.T) {
	_, r := newTestServer(t, &stubDeployer{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/pl1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Placement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Spring", p.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlacementReportHandler(t *testing.T) {
	rep := &stubReporter{}
	_, r := newTestServer(t, &stubDeployer{}, rep)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/pl1/report?days=900", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 365, rep.days)

	var s reporting.PlacementSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "pl1", s.PlacementID)
	assert.InDelta(t, 5.0, s.Total.CTR, 1e-9)
}

func TestPlacementReportHandler_Errors(t *testing.T) {
	_, r := newTestServer(t, &stubDeployer{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/pl1/report", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, r = newTestServer(t, &stubDeployer{}, &stubReporter{})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/pl1/report?days=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/nope/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, r = newTestServer(t, &stubDeployer{}, &stubReporter{err: errors.New("clickhouse down")})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/placements/pl1/report", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	_, r := newTestServer(t, &stubDeployer{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
