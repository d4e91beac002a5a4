package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/deploy"
)

// UserHeader carries the authenticated caller. Authentication itself happens upstream.
const UserHeader = "X-User-ID"

type deployRequest struct {
	CombinationIDs []string `json:"combinationIds"`
	Status         string   `json:"status,omitempty"`
}

// statusFor maps a request level failure to an HTTP status.
func statusFor(kind deploy.Kind) int {
	switch kind {
	case deploy.KindRequestInvalid:
		return http.StatusBadRequest
	case deploy.KindForbidden:
		return http.StatusForbidden
	case deploy.KindPrerequisiteUnavailable:
		return http.StatusFailedDependency
	}
	return http.StatusInternalServerError
}

// DeployHandler handles POST /api/placements/{id}/deploy.
//
// The body is {"combinationIds": [...], "status": "PAUSED"}. A completed batch answers 200
// even when some combinations failed; the per combination errors are in the body.
func (s *Server) DeployHandler(w http.ResponseWriter, r *http.Request) {
	logger := s.logger(r)

	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "", "missing "+UserHeader+" header")
		return
	}

	var body deployRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, deploy.KindRequestInvalid, "invalid json")
		return
	}

	report, err := s.Deployer.Deploy(r.Context(), deploy.Request{
		UserID:         userID,
		PlacementID:    mux.Vars(r)["id"],
		CombinationIDs: body.CombinationIDs,
		Status:         body.Status,
	})
	if err != nil {
		kind := deploy.KindOf(err)
		var de *deploy.Error
		msg := "internal error"
		if errors.As(err, &de) {
			msg = de.Message
		}
		if report != nil {
			writeJSON(w, statusFor(kind), report.Response())
			return
		}
		if kind == deploy.KindInternal {
			logger.Error("deploy batch", zap.Error(err))
		}
		writeError(w, statusFor(kind), kind, msg)
		return
	}

	writeJSON(w, http.StatusOK, report.Response())
}
