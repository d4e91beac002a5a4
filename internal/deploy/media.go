package deploy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/payload"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// MediaResolver returns the platform reference of a media asset, uploading it at most once.
// The reference is cached in the component metadata; concurrent callers in this process
// share one upload and callers in other processes are serialised by the Locker.
type MediaResolver struct {
	store   models.Store
	client  platform.Client
	locker  Locker
	lockTTL time.Duration
	group   singleflight.Group
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewMediaResolver creates a MediaResolver.
func NewMediaResolver(store models.Store, client platform.Client, locker Locker, lockTTL time.Duration,
	logger *zap.Logger, metrics observability.MetricsRegistry) *MediaResolver {
	return &MediaResolver{
		store:   store,
		client:  client,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve returns the uploaded reference for asset under adAccountRef.
func (m *MediaResolver) Resolve(ctx context.Context, adAccountRef string, asset *models.Component) (payload.MediaRef, error) {
	kind, _, err := payload.ResolveMedia(asset)
	if err != nil {
		return payload.MediaRef{}, newError(KindValidationFailed, err, "%v", err)
	}
	if ref, ok := cachedRef(asset, kind); ok {
		m.metrics.IncrementMediaResolutions(string(kind), "cached")
		return payload.MediaRef{Kind: kind, Ref: ref}, nil
	}

	v, err, _ := m.group.Do(asset.ID, func() (any, error) {
		return m.upload(ctx, adAccountRef, asset.ID)
	})
	if err != nil {
		return payload.MediaRef{}, err
	}
	return v.(payload.MediaRef), nil
}

func (m *MediaResolver) upload(ctx context.Context, adAccountRef, componentID string) (payload.MediaRef, error) {
	release, err := m.locker.Acquire(ctx, "media:"+componentID, m.lockTTL)
	if err != nil {
		return payload.MediaRef{}, newError(KindInternal, err, "lock media %s: %v", componentID, err)
	}
	defer release()

	// re-read under the lock, another worker may have uploaded it already
	asset, err := m.store.GetComponent(ctx, componentID)
	if errors.Is(err, models.ErrNotFound) {
		return payload.MediaRef{}, newError(KindValidationFailed, err, "media asset %s not found", componentID)
	}
	if err != nil {
		return payload.MediaRef{}, newError(KindInternal, err, "load media asset %s: %v", componentID, err)
	}
	kind, locator, err := payload.ResolveMedia(asset)
	if err != nil {
		return payload.MediaRef{}, newError(KindValidationFailed, err, "%v", err)
	}
	if ref, ok := cachedRef(asset, kind); ok {
		m.metrics.IncrementMediaResolutions(string(kind), "cached")
		return payload.MediaRef{Kind: kind, Ref: ref}, nil
	}

	ref, err := m.client.UploadMedia(ctx, adAccountRef, kind, locator)
	if err != nil {
		return payload.MediaRef{}, upstreamError(KindUpstreamRejected, err, "media upload failed")
	}
	m.metrics.IncrementMediaResolutions(string(kind), "uploaded")

	asset.SetUploadRef(string(kind), ref)
	asset.UpdatedAt = time.Now()
	if err := m.store.SaveComponent(ctx, asset); err != nil {
		// the upload itself succeeded, so this combination can still use it
		m.logger.Warn("uploaded media reference not saved",
			zap.String("component_id", componentID), zap.String("upload_ref", ref), zap.Error(err))
	}
	return payload.MediaRef{Kind: kind, Ref: ref}, nil
}

// cachedRef returns the stored upload reference when it was made for the same media kind.
func cachedRef(asset *models.Component, kind platform.MediaKind) (string, bool) {
	ref := asset.UploadRef()
	if ref == "" {
		return "", false
	}
	if k := asset.Metadata[models.MetaUploadKind]; k != "" && k != string(kind) {
		return "", false
	}
	return ref, true
}
