package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

var tracer = otel.Tracer("metaforge/deploy")

// AccessChecker decides whether a user may deploy on an account.
type AccessChecker interface {
	CanDeploy(ctx context.Context, userID, accountID string) (bool, error)
}

// Request is one batch deployment request.
type Request struct {
	UserID         string
	PlacementID    string
	CombinationIDs []string
	// Status of the created ads, ACTIVE or PAUSED. Empty means the configured default.
	Status string
}

// Orchestrator runs a batch: provisioning once, then every combination independently.
type Orchestrator struct {
	store         models.Store
	access        AccessChecker
	provisioner   *Provisioner
	pages         *PageResolver
	deployer      *Deployer
	concurrency   int
	defaultStatus string
	now           func() time.Time
	logger        *zap.Logger
	metrics       observability.MetricsRegistry
}

// OrchestratorConfig tunes batch execution.
type OrchestratorConfig struct {
	// Concurrency bounds how many combinations deploy at once. Values below 1 mean 1.
	Concurrency   int
	DefaultStatus string
	Now           func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store models.Store, access AccessChecker, provisioner *Provisioner, pages *PageResolver,
	deployer *Deployer, cfg OrchestratorConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = platform.StatusPaused
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		store:         store,
		access:        access,
		provisioner:   provisioner,
		pages:         pages,
		deployer:      deployer,
		concurrency:   cfg.Concurrency,
		defaultStatus: cfg.DefaultStatus,
		now:           cfg.Now,
		logger:        logger,
		metrics:       metrics,
	}
}

// Deploy runs a batch. Request-invalid and forbidden requests return an error and no report.
// When a prerequisite is unavailable the report lists every id as failed and the error is
// returned alongside it. Otherwise the error is nil and the report covers every id exactly once.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Report, error) {
	ctx, span := tracer.Start(ctx, "deploy.Batch",
		trace.WithAttributes(
			attribute.String("placement_id", req.PlacementID),
			attribute.Int("combinations", len(req.CombinationIDs)),
		))
	defer span.End()

	start := time.Now()
	defer func() { o.metrics.RecordBatchDuration(time.Since(start)) }()

	status, err := o.validate(&req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := newReport(req.PlacementID, o.now())
	span.SetAttributes(attribute.String("batch_id", report.BatchID))
	logger := o.logger.With(zap.String("batch_id", report.BatchID), zap.String("placement_id", req.PlacementID))

	abort := func(e *Error) (*Report, error) {
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Message)
		logger.Warn("batch aborted", zap.String("kind", string(e.Kind)), zap.String("error", e.Message))
		report.failAll(req.CombinationIDs, e)
		report.FinishedAt = o.now()
		for range req.CombinationIDs {
			o.metrics.IncrementCombinationDeployments(string(e.Kind))
		}
		return report, e
	}

	placement, parent, err := o.loadParent(ctx, req.PlacementID)
	if err != nil {
		return abort(asError(err))
	}

	allowed, err := o.access.CanDeploy(ctx, req.UserID, parent.Account.ID)
	if err != nil {
		e := newError(KindInternal, err, "access check failed: %v", err)
		span.RecordError(e)
		return nil, e
	}
	if !allowed {
		e := newError(KindForbidden, nil, "user %q may not deploy on account %s", req.UserID, parent.Account.ID)
		span.SetStatus(codes.Error, e.Message)
		return nil, e
	}

	placementRef, err := o.provisioner.EnsurePlacementProvisioned(ctx, placement, parent)
	if err != nil {
		return abort(asError(err))
	}

	pageRef, err := o.pages.Resolve(ctx, PageContext{Placement: *placement, Account: parent.Account})
	if err != nil {
		return abort(asError(err))
	}

	target := Target{
		Placement:    *placement,
		PlacementRef: placementRef,
		AdAccountRef: parent.Account.AdAccountRef,
		PageRef:      pageRef,
		Status:       status,
	}

	// each worker owns one slot, so the results need no locking
	results := make([]Outcome, len(req.CombinationIDs))
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, id := range req.CombinationIDs {
		g.Go(func() error {
			results[i] = o.deployOne(ctx, target, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.add(res)
	}
	report.FinishedAt = o.now()

	span.SetAttributes(
		attribute.Int("deployed", len(report.Deployed)),
		attribute.Int("failed", len(report.Failed)),
	)
	logger.Info("batch finished",
		zap.Int("deployed", len(report.Deployed)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

// deployOne is the safety net around the deployer: whatever happens, one Outcome comes back.
func (o *Orchestrator) deployOne(ctx context.Context, target Target, id string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("combination worker panicked", zap.String("combination_id", id), zap.Any("panic", rec))
			out = Outcome{
				CombinationID: id,
				State:         StateFailed,
				Err:           &Error{Kind: KindInternal, Message: fmt.Sprintf("unexpected error: %v", rec)},
			}
		}
	}()
	out = o.deployer.Deploy(ctx, target, id)
	out.CombinationID = id
	return out
}

func (o *Orchestrator) validate(req *Request) (string, error) {
	req.PlacementID = strings.TrimSpace(req.PlacementID)
	if req.PlacementID == "" {
		return "", newError(KindRequestInvalid, nil, "placement id is required")
	}
	if len(req.CombinationIDs) == 0 {
		return "", newError(KindRequestInvalid, nil, "at least one combination id is required")
	}
	seen := make(map[string]bool, len(req.CombinationIDs))
	for _, id := range req.CombinationIDs {
		if strings.TrimSpace(id) == "" {
			return "", newError(KindRequestInvalid, nil, "combination ids must not be empty")
		}
		if seen[id] {
			return "", newError(KindRequestInvalid, nil, "duplicate combination id %q", id)
		}
		seen[id] = true
	}

	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = o.defaultStatus
	}
	if status != platform.StatusActive && status != platform.StatusPaused {
		return "", newError(KindRequestInvalid, nil, "status must be %s or %s, got %q", platform.StatusActive, platform.StatusPaused, req.Status)
	}
	return status, nil
}

func (o *Orchestrator) loadParent(ctx context.Context, placementID string) (*models.Placement, Parent, error) {
	placement, err := o.store.GetPlacement(ctx, placementID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, Parent{}, newError(KindPrerequisiteUnavailable, err, "placement %s not found", placementID)
	}
	if err != nil {
		return nil, Parent{}, newError(KindPrerequisiteUnavailable, err, "load placement %s: %v", placementID, err)
	}
	campaign, err := o.store.GetCampaign(ctx, placement.CampaignID)
	if err != nil {
		return nil, Parent{}, newError(KindPrerequisiteUnavailable, err, "load campaign %s of placement %s: %v", placement.CampaignID, placementID, err)
	}
	account, err := o.store.GetAccount(ctx, campaign.AccountID)
	if err != nil {
		return nil, Parent{}, newError(KindPrerequisiteUnavailable, err, "load account %s of campaign %s: %v", campaign.AccountID, campaign.ID, err)
	}
	return placement, Parent{Account: *account, Campaign: *campaign}, nil
}
