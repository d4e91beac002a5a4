package models

// Membership roles. A user holding one of the deploying roles on an account, or owning the
// account outright, may push combinations to the advertising platform on its behalf.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Account is a tenant's connection to the external advertising platform.
// AdAccountRef is the platform identifier that owns creatives, media and ads (e.g. "act_123").
type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OwnerID      string `json:"owner_id"`       // User that owns the account.
	AdAccountRef string `json:"ad_account_ref"` // Platform ad account identifier.
	// PageRef is the account-wide default publisher page. Placements may override it.
	PageRef string `json:"page_ref,omitempty"`
}

// Membership grants a user a role inside an account.
type Membership struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

// Campaign is the parent container of placements on the platform. When the campaign carries
// its own budget (campaign budget optimisation) placements must not send one.
type Campaign struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Name        string `json:"name"`
	ExternalRef string `json:"external_ref"` // Platform campaign identifier.
	HasBudget   bool   `json:"has_budget"`
}
