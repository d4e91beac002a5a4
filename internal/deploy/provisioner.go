package deploy

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/payload"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// Parent is the context a placement is provisioned in.
type Parent struct {
	Account  models.Account
	Campaign models.Campaign
}

// Provisioner makes sure a placement exists on the platform before ads are deployed into it.
type Provisioner struct {
	store    models.Store
	client   platform.Client
	locker   Locker
	lockTTL  time.Duration
	defaults payload.Defaults
	now      func() time.Time
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
}

// NewProvisioner creates a Provisioner. now may be nil, in which case time.Now is used.
func NewProvisioner(store models.Store, client platform.Client, locker Locker, lockTTL time.Duration,
	defaults payload.Defaults, now func() time.Time, logger *zap.Logger, metrics observability.MetricsRegistry) *Provisioner {
	if now == nil {
		now = time.Now
	}
	return &Provisioner{
		store:    store,
		client:   client,
		locker:   locker,
		lockTTL:  lockTTL,
		defaults: defaults,
		now:      now,
		logger:   logger,
		metrics:  metrics,
	}
}

// EnsurePlacementProvisioned returns a verified platform reference for placement, creating
// the ad set when none exists or the stored one no longer resolves. placement is updated in
// place with the persisted state. Errors are *Error of kind KindPrerequisiteUnavailable.
func (p *Provisioner) EnsurePlacementProvisioned(ctx context.Context, placement *models.Placement, parent Parent) (string, error) {
	release, err := p.locker.Acquire(ctx, "provision:"+placement.ID, p.lockTTL)
	if err != nil {
		p.metrics.IncrementPlacementProvisioning("failed")
		return "", newError(KindPrerequisiteUnavailable, err, "placement %s is being provisioned elsewhere: %v", placement.ID, err)
	}
	defer release()

	// another batch may have provisioned it while we waited
	if fresh, err := p.store.GetPlacement(ctx, placement.ID); err == nil {
		*placement = *fresh
	}

	logger := p.logger.With(zap.String("placement_id", placement.ID))

	if ref := placement.ExternalRef; ref != "" {
		_, err := p.client.GetPlacementDetails(ctx, ref)
		if err == nil {
			p.metrics.IncrementPlacementProvisioning("reused")
			return ref, nil
		}
		if !gone(err) {
			p.metrics.IncrementPlacementProvisioning("failed")
			return "", upstreamError(KindPrerequisiteUnavailable, err, "verify placement "+ref)
		}

		logger.Warn("stored placement reference no longer resolves, recreating",
			zap.String("external_ref", ref), zap.Error(err))
		placement.ExternalRef = ""
		placement.UpdatedAt = p.now()
		if err := p.store.SavePlacement(ctx, placement); err != nil {
			p.metrics.IncrementPlacementProvisioning("failed")
			return "", newError(KindPrerequisiteUnavailable, err, "clear stale placement reference: %v", err)
		}
	}

	req, err := payload.BuildPlacementPayload(*placement, parent.Campaign, p.defaults, p.now())
	if err != nil {
		p.metrics.IncrementPlacementProvisioning("failed")
		return "", newError(KindPrerequisiteUnavailable, err, "build placement payload: %v", err)
	}

	ref, err := p.client.CreatePlacement(ctx, parent.Account.AdAccountRef, req)
	if err != nil {
		p.metrics.IncrementPlacementProvisioning("failed")
		return "", upstreamError(KindPrerequisiteUnavailable, err, "create placement")
	}

	if _, err := p.client.GetPlacementDetails(ctx, ref); err != nil {
		p.metrics.IncrementPlacementProvisioning("failed")
		logger.Error("created placement could not be read back", zap.String("external_ref", ref), zap.Error(err))
		verr := upstreamError(KindVerificationFailed, err, "verify created placement "+ref)
		return "", &Error{
			Kind:    KindPrerequisiteUnavailable,
			Message: "placement provisioning failed: " + verr.Message,
			Code:    verr.Code,
			Type:    verr.Type,
			Details: verr.Details,
			Err:     verr,
		}
	}

	placement.ExternalRef = ref
	placement.UpdatedAt = p.now()
	if err := p.store.SavePlacement(ctx, placement); err != nil {
		p.metrics.IncrementPlacementProvisioning("failed")
		logger.Error("placement created but reference not saved", zap.String("external_ref", ref), zap.Error(err))
		return "", newError(KindPrerequisiteUnavailable, err, "save placement reference %s: %v", ref, err)
	}

	p.metrics.IncrementPlacementProvisioning("created")
	logger.Info("placement provisioned", zap.String("external_ref", ref))
	return ref, nil
}

// gone reports whether a read failure means the resource is deleted or inaccessible, as
// opposed to a transient failure that must not trigger recreation.
func gone(err error) bool {
	if platform.IsNotFound(err) {
		return true
	}
	pe, ok := platform.AsError(err)
	if !ok {
		return false
	}
	return pe.StatusCode >= 400 && pe.StatusCode < 500 && pe.StatusCode != http.StatusTooManyRequests
}
