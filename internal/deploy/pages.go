package deploy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// ErrNoPage is returned by a PageStrategy that has no page to offer. It is the trigger for
// falling back to the next strategy.
var ErrNoPage = errors.New("no publisher page available")

// PageContext is what page strategies may look at.
type PageContext struct {
	Placement models.Placement
	Account   models.Account
}

// PageStrategy is one way of finding the publisher page ads are published as.
type PageStrategy interface {
	Name() string
	ResolvePage(ctx context.Context, pc PageContext) (string, error)
}

// PlacementPage uses the page configured on the placement, or its promoted object page.
type PlacementPage struct{}

func (PlacementPage) Name() string { return "placement" }

func (PlacementPage) ResolvePage(_ context.Context, pc PageContext) (string, error) {
	if pc.Placement.PageRef != "" {
		return pc.Placement.PageRef, nil
	}
	if po := pc.Placement.PromotedObject; po != nil && po.PageID != "" {
		return po.PageID, nil
	}
	return "", ErrNoPage
}

// AccountPage uses the account wide default page.
type AccountPage struct{}

func (AccountPage) Name() string { return "account" }

func (AccountPage) ResolvePage(_ context.Context, pc PageContext) (string, error) {
	if pc.Account.PageRef != "" {
		return pc.Account.PageRef, nil
	}
	return "", ErrNoPage
}

// ListedPage asks the platform for the pages of Owner and takes the first one.
type ListedPage struct {
	Client platform.Client
	Owner  string
}

func (ListedPage) Name() string { return "listed" }

func (l ListedPage) ResolvePage(ctx context.Context, _ PageContext) (string, error) {
	pages, err := l.Client.ListPages(ctx, l.Owner)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if p.ID != "" {
			return p.ID, nil
		}
	}
	return "", ErrNoPage
}

// PageResolver tries strategies in order and returns the first page found.
type PageResolver struct {
	strategies []PageStrategy
	logger     *zap.Logger
}

// NewPageResolver creates a PageResolver over strategies.
func NewPageResolver(logger *zap.Logger, strategies ...PageStrategy) *PageResolver {
	return &PageResolver{strategies: strategies, logger: logger}
}

// DefaultPageStrategies returns placement, account, then first listed page.
func DefaultPageStrategies(client platform.Client, owner string) []PageStrategy {
	return []PageStrategy{PlacementPage{}, AccountPage{}, ListedPage{Client: client, Owner: owner}}
}

// Resolve returns the first page a strategy yields. ErrNoPage and platform not-found errors
// move on to the next strategy; any other error stops the chain.
func (r *PageResolver) Resolve(ctx context.Context, pc PageContext) (string, error) {
	for _, s := range r.strategies {
		page, err := s.ResolvePage(ctx, pc)
		if err == nil {
			r.logger.Debug("publisher page resolved", zap.String("strategy", s.Name()), zap.String("page_ref", page))
			return page, nil
		}
		if errors.Is(err, ErrNoPage) || platform.IsNotFound(err) {
			continue
		}
		return "", upstreamError(KindPrerequisiteUnavailable, err, fmt.Sprintf("resolve publisher page (%s)", s.Name()))
	}
	return "", newError(KindPrerequisiteUnavailable, ErrNoPage, "%v", ErrNoPage)
}
