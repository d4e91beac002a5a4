package deploy

import (
	"time"

	"github.com/google/uuid"
)

// State is a step of the per combination pipeline.
type State string

const (
	StatePending         State = "pending"
	StateValidated       State = "validated"
	StateMediaResolved   State = "media_resolved"
	StateCreativeCreated State = "creative_created"
	StateAdCreated       State = "ad_created"
	StateFailed          State = "failed"
)

// Outcome is the terminal result of deploying one combination.
type Outcome struct {
	CombinationID string
	State         State
	AdRef         string
	CreativeRef   string
	Err           *Error
	// Reached is the last successful state before a failure.
	Reached State
}

// Succeeded reports whether the combination reached StateAdCreated.
func (o Outcome) Succeeded() bool {
	return o.State == StateAdCreated
}

// DeployedAd pairs a combination with the platform ad created for it.
type DeployedAd struct {
	CombinationID string `json:"combinationId"`
	ExternalAdRef string `json:"externalAdRef"`
}

// ItemError is a per combination failure record.
type ItemError struct {
	CombinationID string `json:"combinationId"`
	Error         string `json:"error"`
	Kind          Kind   `json:"kind"`
	Code          int    `json:"code,omitempty"`
	Type          string `json:"type,omitempty"`
	Details       string `json:"details,omitempty"`
}

// Report aggregates one batch. Every requested combination id appears exactly once in
// either Deployed or Failed. Reports are returned to the caller and never stored.
type Report struct {
	BatchID     string
	PlacementID string
	Deployed    []DeployedAd
	Failed      []ItemError
	StartedAt   time.Time
	FinishedAt  time.Time
}

func newReport(placementID string, now time.Time) *Report {
	return &Report{
		BatchID:     uuid.NewString(),
		PlacementID: placementID,
		Deployed:    []DeployedAd{},
		Failed:      []ItemError{},
		StartedAt:   now,
	}
}

func (r *Report) add(o Outcome) {
	if o.Succeeded() {
		r.Deployed = append(r.Deployed, DeployedAd{CombinationID: o.CombinationID, ExternalAdRef: o.AdRef})
		return
	}
	r.fail(o.CombinationID, o.Err)
}

func (r *Report) fail(combinationID string, err *Error) {
	if err == nil {
		err = &Error{Kind: KindInternal, Message: "combination did not complete"}
	}
	r.Failed = append(r.Failed, ItemError{
		CombinationID: combinationID,
		Error:         err.Message,
		Kind:          err.Kind,
		Code:          err.Code,
		Type:          err.Type,
		Details:       err.Details,
	})
}

// failAll records the same failure for every id.
func (r *Report) failAll(ids []string, err *Error) {
	for _, id := range ids {
		r.fail(id, err)
	}
}

// Response is the JSON body returned for a batch.
type Response struct {
	Success     bool         `json:"success"`
	Deployed    int          `json:"deployed"`
	Failed      int          `json:"failed"`
	DeployedAds []DeployedAd `json:"deployedAds"`
	Errors      []ItemError  `json:"errors"`
	BatchID     string       `json:"batchId"`
}

// Response renders the report. Success means no combination failed.
func (r *Report) Response() Response {
	return Response{
		Success:     len(r.Failed) == 0,
		Deployed:    len(r.Deployed),
		Failed:      len(r.Failed),
		DeployedAds: r.Deployed,
		Errors:      r.Failed,
		BatchID:     r.BatchID,
	}
}
