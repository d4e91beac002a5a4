// Package api exposes deployments and placement reports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
	"github.com/leonpanjtar/metaforge-sub002/internal/middleware"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/reporting"
)

// BatchDeployer runs deployment batches.
type BatchDeployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*deploy.Report, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger   *zap.Logger
	Store    models.Store
	Deployer BatchDeployer
	// Reporter is nil when ClickHouse is not configured.
	Reporter reporting.Reporter
	Metrics  observability.MetricsRegistry
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, store models.Store, deployer BatchDeployer, reporter reporting.Reporter,
	metrics observability.MetricsRegistry) *Server {
	return &Server{
		Logger:   logger,
		Store:    store,
		Deployer: deployer,
		Reporter: reporter,
		Metrics:  metrics,
	}
}

// Routes registers every handler on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/placements/{id}", s.GetPlacementHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/placements/{id}/deploy", s.DeployHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/placements/{id}/report", s.PlacementReportHandler).Methods(http.MethodGet)
}

type errorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Kind    deploy.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind deploy.Kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func (s *Server) logger(r *http.Request) *zap.Logger {
	return middleware.LoggerFromRequest(r, s.Logger)
}
