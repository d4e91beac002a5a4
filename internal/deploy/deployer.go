package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/payload"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// Target is everything a combination deployment needs that is shared across the batch.
type Target struct {
	Placement    models.Placement
	PlacementRef string
	AdAccountRef string
	PageRef      string
	Status       string
}

// Deployer runs the per combination pipeline:
// pending -> validated -> media_resolved -> creative_created -> ad_created.
type Deployer struct {
	store   models.Store
	client  platform.Client
	media   *MediaResolver
	now     func() time.Time
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewDeployer creates a Deployer. now may be nil, in which case time.Now is used.
func NewDeployer(store models.Store, client platform.Client, media *MediaResolver, now func() time.Time,
	logger *zap.Logger, metrics observability.MetricsRegistry) *Deployer {
	if now == nil {
		now = time.Now
	}
	return &Deployer{
		store:   store,
		client:  client,
		media:   media,
		now:     now,
		logger:  logger,
		metrics: metrics,
	}
}

// run tracks the state of one combination as it moves through the pipeline.
type run struct {
	out Outcome
}

func (r *run) advance(s State) {
	r.out.State = s
	r.out.Reached = s
}

func (r *run) fail(err *Error) Outcome {
	r.out.State = StateFailed
	r.out.Err = err
	return r.out
}

// Deploy deploys one combination into target. It never panics and never returns an error:
// every failure is reported in the Outcome.
func (d *Deployer) Deploy(ctx context.Context, target Target, combinationID string) (out Outcome) {
	r := &run{out: Outcome{CombinationID: combinationID, State: StatePending, Reached: StatePending}}
	logger := d.logger.With(zap.String("combination_id", combinationID), zap.String("placement_id", target.Placement.ID))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("combination deployment panicked", zap.Any("panic", rec), zap.String("state", string(r.out.State)))
			out = r.fail(&Error{Kind: KindInternal, Message: fmt.Sprintf("unexpected error: %v", rec)})
		}
		if out.Succeeded() {
			d.metrics.IncrementCombinationDeployments("deployed")
		} else if out.Err != nil {
			d.metrics.IncrementCombinationDeployments(string(out.Err.Kind))
			logger.Warn("combination deployment failed",
				zap.String("kind", string(out.Err.Kind)),
				zap.String("reached", string(out.Reached)),
				zap.String("error", out.Err.Message))
		}
	}()

	comb, err := d.store.GetCombination(ctx, combinationID)
	if errors.Is(err, models.ErrNotFound) {
		return r.fail(newError(KindValidationFailed, err, "combination %s not found", combinationID))
	}
	if err != nil {
		return r.fail(newError(KindInternal, err, "load combination: %v", err))
	}
	if comb.PlacementID != target.Placement.ID {
		return r.fail(newError(KindValidationFailed, nil, "combination %s does not belong to placement %s", combinationID, target.Placement.ID))
	}
	if comb.Deployed && comb.ExternalAdRef != "" {
		// already live, a retried batch must not create a second ad
		r.out.AdRef = comb.ExternalAdRef
		r.out.CreativeRef = comb.ExternalCreativeRef
		r.advance(StateAdCreated)
		return r.out
	}

	landing, err := payload.ResolveLandingPage(*comb, target.Placement)
	if err != nil {
		return r.fail(newError(KindValidationFailed, err, "%v", err))
	}
	asset, verr := d.loadComponent(ctx, comb.AssetID, models.KindMediaAsset)
	if verr != nil {
		return r.fail(verr)
	}
	if asset == nil {
		return r.fail(newError(KindValidationFailed, payload.ErrMediaRequired, "%v", payload.ErrMediaRequired))
	}
	if _, _, err := payload.ResolveMedia(asset); err != nil {
		return r.fail(newError(KindValidationFailed, err, "%v", err))
	}
	var set payload.ComponentSet
	for _, c := range []struct {
		id   string
		kind models.ComponentKind
		dst  **models.Component
	}{
		{comb.HeadlineID, models.KindHeadline, &set.Headline},
		{comb.BodyID, models.KindBody, &set.Body},
		{comb.DescriptionID, models.KindDescription, &set.Description},
		{comb.CTAID, models.KindCTA, &set.CTA},
	} {
		comp, verr := d.loadComponent(ctx, c.id, c.kind)
		if verr != nil {
			return r.fail(verr)
		}
		*c.dst = comp
	}
	r.advance(StateValidated)

	media, err := d.media.Resolve(ctx, target.AdAccountRef, asset)
	if err != nil {
		return r.fail(asError(err))
	}
	r.advance(StateMediaResolved)

	creativeRef := comb.ExternalCreativeRef
	reused := creativeRef != ""
	if !reused {
		name := fmt.Sprintf("%s / %s", target.Placement.Name, comb.ID)
		req := payload.BuildCreativePayload(name, set, landing, media, payload.ResolveCTAType(*comb, set.CTA), target.PageRef)
		creativeRef, err = d.client.CreateCreative(ctx, target.AdAccountRef, req)
		if err != nil {
			return r.fail(upstreamError(KindUpstreamRejected, err, "creative creation failed"))
		}
		comb.ExternalCreativeRef = creativeRef
		if err := d.store.SaveCombination(ctx, comb); err != nil {
			logger.Warn("creative reference not saved", zap.String("creative_ref", creativeRef), zap.Error(err))
		}
	}
	r.out.CreativeRef = creativeRef
	r.advance(StateCreativeCreated)

	adReq := payload.BuildAdPayload(fmt.Sprintf("%s / %s", target.Placement.Name, comb.ID), creativeRef, target.PlacementRef, target.Status)
	adRef, err := d.client.CreateAd(ctx, target.AdAccountRef, adReq)
	if err != nil {
		if reused {
			// the stored creative may be what the platform rejects; build a fresh one next time
			comb.ExternalCreativeRef = ""
			if serr := d.store.SaveCombination(ctx, comb); serr != nil {
				logger.Warn("stale creative reference not cleared", zap.Error(serr))
			}
		}
		return r.fail(upstreamError(KindUpstreamRejected, err, "ad creation failed"))
	}

	deployedAt := d.now()
	comb.Deployed = true
	comb.ExternalAdRef = adRef
	comb.DeployedAt = &deployedAt
	if err := d.store.SaveCombination(ctx, comb); err != nil {
		logger.Error("ad created but combination not saved", zap.String("ad_ref", adRef), zap.Error(err))
		e := newError(KindInternal, err, "ad %s created but deployment state not saved: %v", adRef, err)
		e.Details = "externalAdRef=" + adRef
		return r.fail(e)
	}
	r.out.AdRef = adRef
	r.advance(StateAdCreated)
	logger.Info("combination deployed", zap.String("ad_ref", adRef), zap.String("creative_ref", creativeRef))
	return r.out
}

// loadComponent loads an optional component. An empty id yields nil; a missing or
// mismatched component is a validation failure.
func (d *Deployer) loadComponent(ctx context.Context, id string, kind models.ComponentKind) (*models.Component, *Error) {
	if id == "" {
		return nil, nil
	}
	c, err := d.store.GetComponent(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, newError(KindValidationFailed, err, "%s component %s not found", kind, id)
	}
	if err != nil {
		return nil, newError(KindInternal, err, "load %s component %s: %v", kind, id, err)
	}
	if c.Kind != kind {
		return nil, newError(KindValidationFailed, nil, "component %s is a %s, expected %s", id, c.Kind, kind)
	}
	return c, nil
}
