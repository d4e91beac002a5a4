package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/config"
	"github.com/leonpanjtar/metaforge-sub002/internal/db"
	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

var (
	owner        = flag.String("owner", "demo-owner", "user id owning the demo account")
	editor       = flag.String("editor", "demo-editor", "user id granted the editor role")
	adAccount    = flag.String("ad-account", "act_1234567890", "platform ad account ref")
	pageRef      = flag.String("page", "", "default publisher page ref of the account")
	placementCnt = flag.Int("placements", 2, "placements to create")
	assetsPer    = flag.Int("assets", 3, "media assets per placement")
	textsPer     = flag.Int("texts", 2, "headlines and bodies per placement")
	comboLimit   = flag.Int("combinations", 6, "max combinations per placement")
	landing      = flag.String("landing", "https://example.com/spring", "default landing page")
	seed         = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

var (
	headlines = []string{"Spring is here", "Fresh looks for less", "Your next favourite", "Limited time only", "New season drop"}
	bodies    = []string{
		"Discover the collection everyone is talking about.",
		"Free shipping on every order this week.",
		"Handpicked styles, delivered to your door.",
		"Upgrade your routine with our bestsellers.",
	}
	ctaTypes  = []string{"LEARN_MORE", "SHOP_NOW", "SIGN_UP"}
	countries = []string{"US", "CA", "GB", "DE", "FR", "AU"}
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx := context.Background()
	r := rand.New(rand.NewSource(*seed))

	account := models.Account{
		ID:           uuid.NewString(),
		Name:         "Demo Account",
		OwnerID:      *owner,
		AdAccountRef: *adAccount,
		PageRef:      *pageRef,
	}
	if err := pg.SaveAccount(ctx, &account); err != nil {
		logger.Fatal("insert account", zap.Error(err))
	}
	if err := pg.SaveMembership(ctx, &models.Membership{AccountID: account.ID, UserID: *editor, Role: models.RoleEditor}); err != nil {
		logger.Fatal("insert membership", zap.Error(err))
	}

	camp := models.Campaign{ID: uuid.NewString(), AccountID: account.ID, Name: "Demo Campaign"}
	if err := pg.SaveCampaign(ctx, &camp); err != nil {
		logger.Fatal("insert campaign", zap.Error(err))
	}

	for i := 0; i < *placementCnt; i++ {
		pl := randomPlacement(r, camp.ID, i+1)
		if err := pg.SavePlacement(ctx, &pl); err != nil {
			logger.Fatal("insert placement", zap.Error(err))
		}

		combos, err := seedPlacement(ctx, pg, r, account.ID, pl.ID)
		if err != nil {
			logger.Fatal("seed placement", zap.String("placement_id", pl.ID), zap.Error(err))
		}
		fmt.Printf("placement %s: %d combinations\n", pl.ID, len(combos))
		for _, id := range combos {
			fmt.Printf("  %s\n", id)
		}
	}

	fmt.Printf("fake data inserted for account %s (owner %s, editor %s)\n", account.ID, *owner, *editor)
}

func randomPlacement(r *rand.Rand, campaignID string, n int) models.Placement {
	daily := float64(10 + r.Intn(90))
	ageMin := 18 + r.Intn(10)
	ageMax := ageMin + 10 + r.Intn(30)
	start := time.Now().Add(2 * time.Hour).Truncate(time.Hour)
	return models.Placement{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		Name:       fmt.Sprintf("Demo Placement %d", n),
		Targeting: models.Targeting{
			AgeMin:    &ageMin,
			AgeMax:    &ageMax,
			Gender:    []string{models.GenderAll, models.GenderMale, models.GenderFemale}[r.Intn(3)],
			Countries: pick(r, countries, 1+r.Intn(3)),
		},
		DailyBudget:       &daily,
		OptimizationGoal:  "LINK_CLICKS",
		BillingEvent:      "IMPRESSIONS",
		BidStrategy:       "LOWEST_COST_WITHOUT_CAP",
		StartTime:         &start,
		DefaultLandingURL: *landing,
	}
}

// seedPlacement creates components and the combinations built from them.
func seedPlacement(ctx context.Context, pg *db.Postgres, r *rand.Rand, accountID, placementID string) ([]string, error) {
	save := func(c models.Component) (string, error) {
		c.ID = uuid.NewString()
		c.AccountID = accountID
		return c.ID, pg.SaveComponent(ctx, &c)
	}

	var assets, heads, texts []string
	for i := 0; i < *assetsPer; i++ {
		c := models.Component{Kind: models.KindMediaAsset, MediaType: models.MediaTypeImage,
			MediaURL: fmt.Sprintf("https://picsum.photos/seed/%d/1080/1080", r.Intn(100000))}
		if i%3 == 2 {
			c.MediaType = models.MediaTypeVideo
			c.MediaURL = fmt.Sprintf("https://example.com/videos/demo-%d.mp4", r.Intn(1000))
		}
		id, err := save(c)
		if err != nil {
			return nil, fmt.Errorf("insert asset: %w", err)
		}
		assets = append(assets, id)
	}
	for i := 0; i < *textsPer; i++ {
		id, err := save(models.Component{Kind: models.KindHeadline, Text: headlines[r.Intn(len(headlines))]})
		if err != nil {
			return nil, fmt.Errorf("insert headline: %w", err)
		}
		heads = append(heads, id)
		id, err = save(models.Component{Kind: models.KindBody, Text: bodies[r.Intn(len(bodies))]})
		if err != nil {
			return nil, fmt.Errorf("insert body: %w", err)
		}
		texts = append(texts, id)
	}

	var ids []string
	for _, a := range assets {
		for i := range heads {
			if len(ids) >= *comboLimit {
				return ids, nil
			}
			c := models.Combination{
				ID:          uuid.NewString(),
				PlacementID: placementID,
				AssetID:     a,
				HeadlineID:  heads[i],
				BodyID:      texts[i],
				CTAType:     ctaTypes[r.Intn(len(ctaTypes))],
			}
			if err := pg.SaveCombination(ctx, &c); err != nil {
				return nil, fmt.Errorf("insert combination: %w", err)
			}
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func pick(r *rand.Rand, from []string, n int) []string {
	idx := r.Perm(len(from))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, from[i])
	}
	return out
}
