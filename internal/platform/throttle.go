package platform

import "context"

// Limiter delays a call until the budget for key allows it.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// appKey is the limiter key of calls not scoped to an ad account.
const appKey = "app"

// ThrottledClient waits on a Limiter before every call. Account scoped calls are keyed
// by the ad account ref, everything else shares appKey.
type ThrottledClient struct {
	next    Client
	limiter Limiter
}

// NewThrottledClient wraps next.
func NewThrottledClient(next Client, limiter Limiter) *ThrottledClient {
	return &ThrottledClient{next: next, limiter: limiter}
}

func (t *ThrottledClient) CreatePlacement(ctx context.Context, adAccountRef string, payload PlacementPayload) (string, error) {
	if err := t.limiter.Wait(ctx, adAccountRef); err != nil {
		return "", err
	}
	return t.next.CreatePlacement(ctx, adAccountRef, payload)
}

func (t *ThrottledClient) GetPlacementDetails(ctx context.Context, placementRef string) (*PlacementDetails, error) {
	if err := t.limiter.Wait(ctx, appKey); err != nil {
		return nil, err
	}
	return t.next.GetPlacementDetails(ctx, placementRef)
}

func (t *ThrottledClient) UploadMedia(ctx context.Context, adAccountRef string, kind MediaKind, locator string) (string, error) {
	if err := t.limiter.Wait(ctx, adAccountRef); err != nil {
		return "", err
	}
	return t.next.UploadMedia(ctx, adAccountRef, kind, locator)
}

func (t *ThrottledClient) CreateCreative(ctx context.Context, adAccountRef string, payload CreativePayload) (string, error) {
	if err := t.limiter.Wait(ctx, adAccountRef); err != nil {
		return "", err
	}
	return t.next.CreateCreative(ctx, adAccountRef, payload)
}

func (t *ThrottledClient) CreateAd(ctx context.Context, adAccountRef string, payload AdPayload) (string, error) {
	if err := t.limiter.Wait(ctx, adAccountRef); err != nil {
		return "", err
	}
	return t.next.CreateAd(ctx, adAccountRef, payload)
}

func (t *ThrottledClient) GetInsights(ctx context.Context, adRef string, dates DateRange) (*Insights, error) {
	if err := t.limiter.Wait(ctx, appKey); err != nil {
		return nil, err
	}
	return t.next.GetInsights(ctx, adRef, dates)
}

func (t *ThrottledClient) ListPages(ctx context.Context, ownerRef string) ([]Page, error) {
	if err := t.limiter.Wait(ctx, appKey); err != nil {
		return nil, err
	}
	return t.next.ListPages(ctx, ownerRef)
}
