package models

import "time"

// Combination is one candidate ad: a fixed tuple of components plus a landing page and CTA
// type. Identity fields are set by the generation step; only the deployment fields
// (Deployed, ExternalAdRef, ExternalCreativeRef, DeployedAt) change afterwards.
type Combination struct {
	ID            string `json:"id"`
	PlacementID   string `json:"placement_id"`
	AssetID       string `json:"asset_id"`
	HeadlineID    string `json:"headline_id,omitempty"`
	BodyID        string `json:"body_id"`
	DescriptionID string `json:"description_id,omitempty"`
	CTAID         string `json:"cta_id,omitempty"`
	// CTAType is the platform call-to-action type (e.g. LEARN_MORE). When empty the CTA
	// component text is used.
	CTAType    string `json:"cta_type,omitempty"`
	LandingURL string `json:"landing_url,omitempty"`

	Deployed      bool   `json:"deployed"`
	ExternalAdRef string `json:"external_ad_ref,omitempty"`
	// ExternalCreativeRef is recorded as soon as the creative exists so a retry after a failed
	// ad creation reuses it instead of leaving another orphan behind.
	ExternalCreativeRef string     `json:"external_creative_ref,omitempty"`
	DeployedAt          *time.Time `json:"deployed_at,omitempty"`
}
