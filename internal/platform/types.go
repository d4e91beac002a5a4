package platform

import "time"

// MediaKind is the kind of media uploaded to the platform.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Ad statuses accepted by CreateAd.
const (
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"
)

// PlacementPayload is the ad set creation request. Every optional field is a pointer or an
// omitempty slice so that unset values never reach the wire as null or [].
type PlacementPayload struct {
	Name             string              `json:"name"`
	CampaignID       string              `json:"campaign_id"`
	Status           string              `json:"status"`
	Targeting        TargetingPayload    `json:"targeting"`
	DailyBudget      *int64              `json:"daily_budget,omitempty"`
	LifetimeBudget   *int64              `json:"lifetime_budget,omitempty"`
	OptimizationGoal string              `json:"optimization_goal,omitempty"`
	BillingEvent     string              `json:"billing_event,omitempty"`
	BidStrategy      string              `json:"bid_strategy,omitempty"`
	BidAmount        *int64              `json:"bid_amount,omitempty"`
	PromotedObject   *PromotedObject     `json:"promoted_object,omitempty"`
	AttributionSpec  []AttributionWindow `json:"attribution_spec,omitempty"`
	StartTime        *int64              `json:"start_time,omitempty"` // epoch seconds
	EndTime          *int64              `json:"end_time,omitempty"`   // epoch seconds
}

// TargetingPayload is the audience section of a placement request.
type TargetingPayload struct {
	AgeMin             int              `json:"age_min"`
	AgeMax             int              `json:"age_max"`
	Genders            []int            `json:"genders"`
	GeoLocations       *GeoLocations    `json:"geo_locations,omitempty"`
	Interests          []TargetingEntry `json:"interests,omitempty"`
	Behaviors          []TargetingEntry `json:"behaviors,omitempty"`
	PublisherPlatforms []string         `json:"publisher_platforms"`
}

// GeoLocations restricts delivery to a set of countries.
type GeoLocations struct {
	Countries []string `json:"countries"`
}

// TargetingEntry references an interest or behavior.
type TargetingEntry struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type PromotedObject struct {
	PageID          string `json:"page_id,omitempty"`
	PixelID         string `json:"pixel_id,omitempty"`
	CustomEventType string `json:"custom_event_type,omitempty"`
}

type AttributionWindow struct {
	EventType  string `json:"event_type"`
	WindowDays int    `json:"window_days"`
}

// CreativePayload is the ad creative request. Exactly one of LinkData and VideoData is set.
type CreativePayload struct {
	Name            string          `json:"name"`
	ObjectStorySpec ObjectStorySpec `json:"object_story_spec"`
}

type ObjectStorySpec struct {
	PageID    string     `json:"page_id"`
	LinkData  *LinkData  `json:"link_data,omitempty"`
	VideoData *VideoData `json:"video_data,omitempty"`
}

// LinkData is the image variant of a creative.
type LinkData struct {
	ImageHash    string       `json:"image_hash"`
	Link         string       `json:"link"`
	Message      string       `json:"message"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	CallToAction CallToAction `json:"call_to_action"`
}

// VideoData is the video variant of a creative.
type VideoData struct {
	VideoID         string       `json:"video_id"`
	Title           string       `json:"title"`
	Message         string       `json:"message"`
	LinkDescription string       `json:"link_description"`
	CallToAction    CallToAction `json:"call_to_action"`
}

type CallToAction struct {
	Type  string           `json:"type"`
	Value CallToActionLink `json:"value"`
}

type CallToActionLink struct {
	Link string `json:"link"`
}

// AdPayload is the ad creation request.
type AdPayload struct {
	Name     string      `json:"name"`
	AdSetID  string      `json:"adset_id"`
	Creative CreativeRef `json:"creative"`
	Status   string      `json:"status"`
}

type CreativeRef struct {
	CreativeID string `json:"creative_id"`
}

// PlacementDetails is the subset of ad set fields read back during verification.
type PlacementDetails struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	CampaignID      string `json:"campaign_id"`
}

// DateRange is an inclusive day range used for insights queries.
type DateRange struct {
	Since time.Time
	Until time.Time
}

// Insights are the delivery metrics of one ad over a date range.
type Insights struct {
	Impressions int64
	Clicks      int64
	CTR         float64
	Spend       float64
	Frequency   float64
	DateStart   string
	DateStop    string
}

// Page is a publisher page the ads can be published as.
type Page struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
