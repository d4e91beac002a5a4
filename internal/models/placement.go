package models

import "time"

// Gender targeting values.
const (
	GenderAll    = "all"
	GenderMale   = "male"
	GenderFemale = "female"
)

// TargetingEntity is a platform-side interest or behavior reference.
type TargetingEntity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Targeting describes the audience a placement delivers to. Nil or empty fields are not
// sent to the platform unless a default applies (age range, gender, publisher platforms).
type Targeting struct {
	AgeMin             *int              `json:"age_min,omitempty"`
	AgeMax             *int              `json:"age_max,omitempty"`
	Gender             string            `json:"gender,omitempty"`    // GenderAll when empty.
	Countries          []string          `json:"countries,omitempty"` // ISO 3166-1 alpha-2 codes.
	Interests          []TargetingEntity `json:"interests,omitempty"`
	Behaviors          []TargetingEntity `json:"behaviors,omitempty"`
	PublisherPlatforms []string          `json:"publisher_platforms,omitempty"`
}

// PromotedObject identifies what the placement optimises for on the platform.
type PromotedObject struct {
	PageID          string `json:"page_id,omitempty"`
	PixelID         string `json:"pixel_id,omitempty"`
	CustomEventType string `json:"custom_event_type,omitempty"`
}

// AttributionWindow is one entry of a placement's attribution spec (e.g. 7 day click).
type AttributionWindow struct {
	EventType  string `json:"event_type"`
	WindowDays int    `json:"window_days"`
}

// Placement is the platform's ad-set equivalent: the targeting, budget and schedule container
// that ads are deployed into. ExternalRef is empty until the placement has been provisioned;
// once verified live it is reused, and it is cleared and recreated when verification fails.
type Placement struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Targeting   Targeting `json:"targeting"`
	// Budgets are in major currency units. At most one is sent, converted to minor units.
	DailyBudget      *float64           `json:"daily_budget,omitempty"`
	LifetimeBudget   *float64           `json:"lifetime_budget,omitempty"`
	OptimizationGoal string             `json:"optimization_goal,omitempty"`
	BillingEvent     string             `json:"billing_event,omitempty"`
	BidStrategy      string             `json:"bid_strategy,omitempty"`
	BidAmount        *float64           `json:"bid_amount,omitempty"`
	PromotedObject   *PromotedObject    `json:"promoted_object,omitempty"`
	AttributionSpec  []AttributionWindow `json:"attribution_spec,omitempty"`
	StartTime        *time.Time         `json:"start_time,omitempty"`
	EndTime          *time.Time         `json:"end_time,omitempty"`
	// DefaultLandingURL is used by combinations that carry no landing page of their own.
	DefaultLandingURL string `json:"default_landing_url,omitempty"`
	// PageRef is the publisher page ads in this placement are published as.
	PageRef   string    `json:"page_ref,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate the result without touching shared state.
func (p Placement) Clone() Placement {
	out := p
	out.Targeting.Countries = append([]string(nil), p.Targeting.Countries...)
	out.Targeting.Interests = append([]TargetingEntity(nil), p.Targeting.Interests...)
	out.Targeting.Behaviors = append([]TargetingEntity(nil), p.Targeting.Behaviors...)
	out.Targeting.PublisherPlatforms = append([]string(nil), p.Targeting.PublisherPlatforms...)
	out.AttributionSpec = append([]AttributionWindow(nil), p.AttributionSpec...)
	if p.PromotedObject != nil {
		po := *p.PromotedObject
		out.PromotedObject = &po
	}
	return out
}
