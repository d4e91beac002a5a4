package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
)

// GetPlacementHandler handles GET /api/placements/{id}.
func (s *Server) GetPlacementHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.GetPlacement(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "", "placement not found")
		return
	}
	if err != nil {
		s.logger(r).Error("get placement", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PlacementReportHandler handles GET /api/placements/{id}/report.
//
// Query Parameters:
//   - days: number of days of snapshots to consider (default: 7, max: 365)
func (s *Server) PlacementReportHandler(w http.ResponseWriter, r *http.Request) {
	if s.Reporter == nil {
		writeError(w, http.StatusServiceUnavailable, "", "analytics database unavailable")
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "", "invalid days parameter")
			return
		}
		days = min(n, 365)
	}

	id := mux.Vars(r)["id"]
	if _, err := s.Store.GetPlacement(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "", "placement not found")
			return
		}
		s.logger(r).Error("get placement", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}

	summary, err := s.Reporter.PlacementReport(r.Context(), id, days)
	if err != nil {
		s.logger(r).Error("placement report", zap.String("placement_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
