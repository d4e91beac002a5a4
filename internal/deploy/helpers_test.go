package deploy

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/auth"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
	"github.com/leonpanjtar/metaforge-sub002/internal/payload"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	store   *models.InMemoryStore
	client  *fakeClient
	metrics *observability.MockMetricsRegistry
	orch    *Orchestrator
}

func daily(v float64) *float64 { return &v }

// newFixture seeds one account (owned by "owner", editor "ed", viewer "viewer"), a campaign,
// placement "pl1" and the shared components img1, vid1, h1, b1, d1, cta1.
func newFixture(t *testing.T, concurrency int) *fixture {
	t.Helper()
	store := models.NewInMemoryStore()
	store.PutAccount(models.Account{ID: "acc1", OwnerID: "owner", AdAccountRef: "act_1"})
	store.PutMembership(models.Membership{AccountID: "acc1", UserID: "ed", Role: models.RoleEditor})
	store.PutMembership(models.Membership{AccountID: "acc1", UserID: "viewer", Role: models.RoleViewer})
	store.PutCampaign(models.Campaign{ID: "camp1", AccountID: "acc1", ExternalRef: "ext_camp_1"})

	mustSave(t, store.SavePlacement(context.Background(), &models.Placement{
		ID:          "pl1",
		CampaignID:  "camp1",
		Name:        "Spring",
		DailyBudget: daily(20),
		Targeting:   models.Targeting{Countries: []string{"US"}},
		PageRef:     "page_cfg",
	}))
	for _, c := range []models.Component{
		{ID: "img1", AccountID: "acc1", Kind: models.KindMediaAsset, MediaType: models.MediaTypeImage, MediaURL: "https://cdn/img1.png"},
		{ID: "img2", AccountID: "acc1", Kind: models.KindMediaAsset, MediaType: models.MediaTypeImage, MediaURL: "https://cdn/img2.png"},
		{ID: "vid1", AccountID: "acc1", Kind: models.KindMediaAsset, MediaType: models.MediaTypeVideo, MediaURL: "https://cdn/v.mp4"},
		{ID: "gif1", AccountID: "acc1", Kind: models.KindMediaAsset, MediaType: "gif", MediaURL: "https://cdn/a.gif"},
		{ID: "h1", AccountID: "acc1", Kind: models.KindHeadline, Text: "Fresh deals"},
		{ID: "b1", AccountID: "acc1", Kind: models.KindBody, Text: "Save big this spring"},
		{ID: "d1", AccountID: "acc1", Kind: models.KindDescription, Text: "Limited time"},
		{ID: "cta1", AccountID: "acc1", Kind: models.KindCTA, Text: "Shop now"},
	} {
		c := c
		mustSave(t, store.SaveComponent(context.Background(), &c))
	}

	client := newFakeClient()
	metrics := &observability.MockMetricsRegistry{}
	logger := zap.NewNop()
	locker := NewLocalLocker()

	prov := NewProvisioner(store, client, locker, time.Minute,
		payload.Defaults{PublisherPlatforms: []string{"facebook", "instagram"}}, clock, logger, metrics)
	media := NewMediaResolver(store, client, locker, time.Minute, logger, metrics)
	dep := NewDeployer(store, client, media, clock, logger, metrics)
	pages := NewPageResolver(logger, DefaultPageStrategies(client, "me")...)
	orch := NewOrchestrator(store, auth.NewAuthorizer(store), prov, pages, dep,
		OrchestratorConfig{Concurrency: concurrency, Now: clock}, logger, metrics)

	return &fixture{store: store, client: client, metrics: metrics, orch: orch}
}

func mustSave(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// addCombination stores a combination on pl1 with the standard text components.
func (f *fixture) addCombination(t *testing.T, id, assetID, landing string) {
	t.Helper()
	mustSave(t, f.store.SaveCombination(context.Background(), &models.Combination{
		ID:            id,
		PlacementID:   "pl1",
		AssetID:       assetID,
		HeadlineID:    "h1",
		BodyID:        "b1",
		DescriptionID: "d1",
		CTAID:         "cta1",
		LandingURL:    landing,
	}))
}

func (f *fixture) placement(t *testing.T) *models.Placement {
	t.Helper()
	p, err := f.store.GetPlacement(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("load placement: %v", err)
	}
	return p
}

func (f *fixture) combination(t *testing.T, id string) *models.Combination {
	t.Helper()
	c, err := f.store.GetCombination(context.Background(), id)
	if err != nil {
		t.Fatalf("load combination %s: %v", id, err)
	}
	return c
}

// reportIDs returns every combination id in the report, successes first.
func reportIDs(r *Report) []string {
	var ids []string
	for _, d := range r.Deployed {
		ids = append(ids, d.CombinationID)
	}
	for _, e := range r.Failed {
		ids = append(ids, e.CombinationID)
	}
	return ids
}
