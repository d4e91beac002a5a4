// Package payload turns domain entities into advertising platform requests.
// All functions are pure: the same inputs always produce the same payload.
package payload

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

var (
	ErrLandingPageRequired = errors.New("landing page URL is required")
	ErrMediaRequired       = errors.New("a media asset with a media URL is required")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrBudgetRequired      = errors.New("placement needs a daily or lifetime budget when the campaign has none")
	ErrInvalidGender       = errors.New("invalid gender targeting")
)

// Targeting defaults applied when the placement leaves them unset.
const (
	DefaultAgeMin = 18
	DefaultAgeMax = 65
	// DefaultCTAType is used when neither the combination nor its CTA component name one.
	DefaultCTAType = "LEARN_MORE"
)

// StartTimeGrace is how far in the past a requested start time may be before it is
// replaced by the current time.
const StartTimeGrace = time.Hour

// Defaults carries configuration driven values used while building payloads.
type Defaults struct {
	PublisherPlatforms []string
	PlacementStatus    string
}

// BuildPlacementPayload builds the ad set creation request for p under campaign c.
// now is only used by the start time policy.
func BuildPlacementPayload(p models.Placement, c models.Campaign, d Defaults, now time.Time) (platform.PlacementPayload, error) {
	targeting, err := buildTargeting(p.Targeting, d)
	if err != nil {
		return platform.PlacementPayload{}, err
	}

	status := d.PlacementStatus
	if status == "" {
		status = platform.StatusActive
	}

	out := platform.PlacementPayload{
		Name:             p.Name,
		CampaignID:       c.ExternalRef,
		Status:           status,
		Targeting:        targeting,
		OptimizationGoal: p.OptimizationGoal,
		BillingEvent:     p.BillingEvent,
		BidStrategy:      p.BidStrategy,
	}

	if !c.HasBudget {
		switch {
		case p.DailyBudget != nil && *p.DailyBudget > 0:
			v := ToMinorUnits(*p.DailyBudget)
			out.DailyBudget = &v
		case p.LifetimeBudget != nil && *p.LifetimeBudget > 0:
			v := ToMinorUnits(*p.LifetimeBudget)
			out.LifetimeBudget = &v
		default:
			return platform.PlacementPayload{}, ErrBudgetRequired
		}
	}

	if p.BidAmount != nil {
		v := ToMinorUnits(*p.BidAmount)
		out.BidAmount = &v
	}
	if po := p.PromotedObject; po != nil && (po.PageID != "" || po.PixelID != "" || po.CustomEventType != "") {
		out.PromotedObject = &platform.PromotedObject{
			PageID:          po.PageID,
			PixelID:         po.PixelID,
			CustomEventType: po.CustomEventType,
		}
	}
	for _, w := range p.AttributionSpec {
		out.AttributionSpec = append(out.AttributionSpec, platform.AttributionWindow{
			EventType:  w.EventType,
			WindowDays: w.WindowDays,
		})
	}
	out.StartTime = ResolveStartTime(p.StartTime, now)
	if p.EndTime != nil {
		v := p.EndTime.Unix()
		out.EndTime = &v
	}
	return out, nil
}

func buildTargeting(t models.Targeting, d Defaults) (platform.TargetingPayload, error) {
	out := platform.TargetingPayload{
		AgeMin: DefaultAgeMin,
		AgeMax: DefaultAgeMax,
	}
	if t.AgeMin != nil {
		out.AgeMin = *t.AgeMin
	}
	if t.AgeMax != nil {
		out.AgeMax = *t.AgeMax
	}

	switch strings.ToLower(t.Gender) {
	case "", models.GenderAll:
		out.Genders = []int{1, 2}
	case models.GenderMale:
		out.Genders = []int{1}
	case models.GenderFemale:
		out.Genders = []int{2}
	default:
		return platform.TargetingPayload{}, fmt.Errorf("%w: %q", ErrInvalidGender, t.Gender)
	}

	if len(t.Countries) > 0 {
		out.GeoLocations = &platform.GeoLocations{Countries: append([]string(nil), t.Countries...)}
	}
	out.Interests = toEntries(t.Interests)
	out.Behaviors = toEntries(t.Behaviors)

	if len(t.PublisherPlatforms) > 0 {
		out.PublisherPlatforms = append([]string(nil), t.PublisherPlatforms...)
	} else {
		out.PublisherPlatforms = append([]string(nil), d.PublisherPlatforms...)
	}
	return out, nil
}

func toEntries(in []models.TargetingEntity) []platform.TargetingEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]platform.TargetingEntry, len(in))
	for i, e := range in {
		out[i] = platform.TargetingEntry{ID: e.ID, Name: e.Name}
	}
	return out
}

// ToMinorUnits converts a major currency amount to minor units (cents).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ResolveStartTime applies the start time policy: a start more than StartTimeGrace in the
// past becomes now, anything else passes through. Returns epoch seconds, or nil when unset.
func ResolveStartTime(start *time.Time, now time.Time) *int64 {
	if start == nil {
		return nil
	}
	v := start.Unix()
	if now.Sub(*start) > StartTimeGrace {
		v = now.Unix()
	}
	return &v
}

// ResolveLandingPage prefers the combination URL and falls back to the placement default.
func ResolveLandingPage(c models.Combination, p models.Placement) (string, error) {
	if u := strings.TrimSpace(c.LandingURL); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(p.DefaultLandingURL); u != "" {
		return u, nil
	}
	return "", ErrLandingPageRequired
}

// ResolveMedia returns the platform media kind and source locator of a media asset.
func ResolveMedia(asset *models.Component) (platform.MediaKind, string, error) {
	if asset == nil || asset.Kind != models.KindMediaAsset || strings.TrimSpace(asset.MediaURL) == "" {
		return "", "", ErrMediaRequired
	}
	switch strings.ToLower(asset.MediaType) {
	case models.MediaTypeImage:
		return platform.MediaImage, asset.MediaURL, nil
	case models.MediaTypeVideo:
		return platform.MediaVideo, asset.MediaURL, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, asset.MediaType)
	}
}

// ComponentSet holds the text components of a combination. Any of them may be nil.
type ComponentSet struct {
	Headline    *models.Component
	Body        *models.Component
	Description *models.Component
	CTA         *models.Component
}

// MediaRef is an uploaded media reference: an image hash or a video id.
type MediaRef struct {
	Kind platform.MediaKind
	Ref  string
}

// ResolveCTAType picks the call to action type: the combination's own, else the CTA
// component text in platform form, else DefaultCTAType.
func ResolveCTAType(c models.Combination, cta *models.Component) string {
	if c.CTAType != "" {
		return strings.ToUpper(c.CTAType)
	}
	if t := text(cta); t != "" {
		return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(t), " ", "_"))
	}
	return DefaultCTAType
}

// BuildCreativePayload builds an image (link) or video creative. Missing text components
// become empty strings.
func BuildCreativePayload(name string, set ComponentSet, landingPage string, media MediaRef, ctaType, pageRef string) platform.CreativePayload {
	cta := platform.CallToAction{
		Type:  ctaType,
		Value: platform.CallToActionLink{Link: landingPage},
	}
	spec := platform.ObjectStorySpec{PageID: pageRef}

	switch media.Kind {
	case platform.MediaVideo:
		spec.VideoData = &platform.VideoData{
			VideoID:         media.Ref,
			Title:           text(set.Headline),
			Message:         text(set.Body),
			LinkDescription: text(set.Description),
			CallToAction:    cta,
		}
	default:
		spec.LinkData = &platform.LinkData{
			ImageHash:    media.Ref,
			Link:         landingPage,
			Message:      text(set.Body),
			Name:         text(set.Headline),
			Description:  text(set.Description),
			CallToAction: cta,
		}
	}
	return platform.CreativePayload{Name: name, ObjectStorySpec: spec}
}

// BuildAdPayload builds the ad request linking a creative to a placement.
func BuildAdPayload(name, creativeRef, placementRef, status string) platform.AdPayload {
	if status == "" {
		status = platform.StatusPaused
	}
	return platform.AdPayload{
		Name:     name,
		AdSetID:  placementRef,
		Creative: platform.CreativeRef{CreativeID: creativeRef},
		Status:   status,
	}
}

func text(c *models.Component) string {
	if c == nil {
		return ""
	}
	return c.Text
}
