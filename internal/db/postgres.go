package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
)

// Postgres wraps a postgres DB connection and implements models.Store.
type Postgres struct {
	DB *sql.DB
}

var _ models.Store = (*Postgres)(nil)

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    ad_account_ref TEXT NOT NULL,
    page_ref TEXT
);

CREATE TABLE IF NOT EXISTS memberships (
    account_id TEXT REFERENCES accounts(id),
    user_id TEXT NOT NULL,
    role TEXT NOT NULL,
    PRIMARY KEY (account_id, user_id)
);

CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    account_id TEXT REFERENCES accounts(id),
    name TEXT NOT NULL,
    external_ref TEXT NOT NULL,
    has_budget BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS placements (
    id TEXT PRIMARY KEY,
    campaign_id TEXT REFERENCES campaigns(id),
    name TEXT NOT NULL,
    external_ref TEXT,
    age_min INT,
    age_max INT,
    gender TEXT,
    countries TEXT[],
    interests JSONB,
    behaviors JSONB,
    publisher_platforms TEXT[],
    daily_budget DOUBLE PRECISION,
    lifetime_budget DOUBLE PRECISION,
    optimization_goal TEXT,
    billing_event TEXT,
    bid_strategy TEXT,
    bid_amount DOUBLE PRECISION,
    promoted_object JSONB,
    attribution_spec JSONB,
    start_time TIMESTAMPTZ NULL,
    end_time TIMESTAMPTZ NULL,
    default_landing_url TEXT,
    page_ref TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS components (
    id TEXT PRIMARY KEY,
    account_id TEXT REFERENCES accounts(id),
    kind TEXT NOT NULL,
    text TEXT,
    media_type TEXT,
    media_url TEXT,
    metadata JSONB,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS combinations (
    id TEXT PRIMARY KEY,
    placement_id TEXT REFERENCES placements(id),
    asset_id TEXT REFERENCES components(id),
    headline_id TEXT,
    body_id TEXT,
    description_id TEXT,
    cta_id TEXT,
    cta_type TEXT,
    landing_url TEXT,
    deployed BOOLEAN NOT NULL DEFAULT FALSE,
    external_ad_ref TEXT,
    external_creative_ref TEXT,
    deployed_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_account_id ON campaigns (account_id);
CREATE INDEX IF NOT EXISTS idx_placements_campaign_id ON placements (campaign_id);
CREATE INDEX IF NOT EXISTS idx_combinations_placement_id ON combinations (placement_id);
CREATE INDEX IF NOT EXISTS idx_combinations_deployed ON combinations (deployed) WHERE deployed = true;
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func (p *Postgres) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	var page sql.NullString
	err := p.DB.QueryRowContext(ctx, `SELECT id, name, owner_id, ad_account_ref, page_ref FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.OwnerID, &a.AdAccountRef, &page)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, notFound(err))
	}
	a.PageRef = page.String
	return &a, nil
}

// SaveAccount inserts or updates an account.
func (p *Postgres) SaveAccount(ctx context.Context, a *models.Account) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO accounts (id, name, owner_id, ad_account_ref, page_ref) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id,
		ad_account_ref = EXCLUDED.ad_account_ref, page_ref = EXCLUDED.page_ref`,
		a.ID, a.Name, a.OwnerID, a.AdAccountRef, nullString(a.PageRef))
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

func (p *Postgres) GetMembership(ctx context.Context, accountID, userID string) (*models.Membership, error) {
	m := models.Membership{AccountID: accountID, UserID: userID}
	err := p.DB.QueryRowContext(ctx, `SELECT role FROM memberships WHERE account_id = $1 AND user_id = $2`, accountID, userID).
		Scan(&m.Role)
	if err != nil {
		return nil, fmt.Errorf("get membership %s/%s: %w", accountID, userID, notFound(err))
	}
	return &m, nil
}

// SaveMembership inserts or updates a membership.
func (p *Postgres) SaveMembership(ctx context.Context, m *models.Membership) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO memberships (account_id, user_id, role) VALUES ($1,$2,$3)
		ON CONFLICT (account_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.AccountID, m.UserID, m.Role)
	if err != nil {
		return fmt.Errorf("save membership %s/%s: %w", m.AccountID, m.UserID, err)
	}
	return nil
}

func (p *Postgres) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	err := p.DB.QueryRowContext(ctx, `SELECT id, account_id, name, external_ref, has_budget FROM campaigns WHERE id = $1`, id).
		Scan(&c.ID, &c.AccountID, &c.Name, &c.ExternalRef, &c.HasBudget)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, notFound(err))
	}
	return &c, nil
}

// SaveCampaign inserts or updates a campaign.
func (p *Postgres) SaveCampaign(ctx context.Context, c *models.Campaign) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO campaigns (id, account_id, name, external_ref, has_budget) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET account_id = EXCLUDED.account_id, name = EXCLUDED.name,
		external_ref = EXCLUDED.external_ref, has_budget = EXCLUDED.has_budget`,
		c.ID, c.AccountID, c.Name, c.ExternalRef, c.HasBudget)
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", c.ID, err)
	}
	return nil
}

const placementColumns = `id, campaign_id, name, external_ref, age_min, age_max, gender, countries, interests, behaviors,
	publisher_platforms, daily_budget, lifetime_budget, optimization_goal, billing_event, bid_strategy, bid_amount,
	promoted_object, attribution_spec, start_time, end_time, default_landing_url, page_ref, updated_at`

func (p *Postgres) GetPlacement(ctx context.Context, id string) (*models.Placement, error) {
	var pl models.Placement
	var externalRef, gender, optGoal, billing, bidStrategy, landing, page sql.NullString
	var ageMin, ageMax sql.NullInt64
	var daily, lifetime, bid sql.NullFloat64
	var interests, behaviors, promoted, attribution []byte
	var start, end sql.NullTime
	var countries, platforms []string

	err := p.DB.QueryRowContext(ctx, `SELECT `+placementColumns+` FROM placements WHERE id = $1`, id).Scan(
		&pl.ID, &pl.CampaignID, &pl.Name, &externalRef, &ageMin, &ageMax, &gender,
		pq.Array(&countries), &interests, &behaviors, pq.Array(&platforms),
		&daily, &lifetime, &optGoal, &billing, &bidStrategy, &bid,
		&promoted, &attribution, &start, &end, &landing, &page, &pl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get placement %s: %w", id, notFound(err))
	}

	pl.ExternalRef = externalRef.String
	pl.Targeting.Gender = gender.String
	pl.Targeting.Countries = countries
	pl.Targeting.PublisherPlatforms = platforms
	if ageMin.Valid {
		v := int(ageMin.Int64)
		pl.Targeting.AgeMin = &v
	}
	if ageMax.Valid {
		v := int(ageMax.Int64)
		pl.Targeting.AgeMax = &v
	}
	pl.DailyBudget = floatPtr(daily)
	pl.LifetimeBudget = floatPtr(lifetime)
	pl.BidAmount = floatPtr(bid)
	pl.OptimizationGoal = optGoal.String
	pl.BillingEvent = billing.String
	pl.BidStrategy = bidStrategy.String
	pl.DefaultLandingURL = landing.String
	pl.PageRef = page.String
	if start.Valid {
		t := start.Time
		pl.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		pl.EndTime = &t
	}
	for _, col := range []struct {
		raw  []byte
		dst  any
		name string
	}{
		{interests, &pl.Targeting.Interests, "interests"},
		{behaviors, &pl.Targeting.Behaviors, "behaviors"},
		{promoted, &pl.PromotedObject, "promoted_object"},
		{attribution, &pl.AttributionSpec, "attribution_spec"},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("parse placement %s %s: %w", id, col.name, err)
		}
	}
	return &pl, nil
}

func (p *Postgres) SavePlacement(ctx context.Context, pl *models.Placement) error {
	interests, err := jsonOrNull(pl.Targeting.Interests, len(pl.Targeting.Interests) > 0)
	if err != nil {
		return err
	}
	behaviors, err := jsonOrNull(pl.Targeting.Behaviors, len(pl.Targeting.Behaviors) > 0)
	if err != nil {
		return err
	}
	promoted, err := jsonOrNull(pl.PromotedObject, pl.PromotedObject != nil)
	if err != nil {
		return err
	}
	attribution, err := jsonOrNull(pl.AttributionSpec, len(pl.AttributionSpec) > 0)
	if err != nil {
		return err
	}
	updated := pl.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = p.DB.ExecContext(ctx, `INSERT INTO placements (`+placementColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		ON CONFLICT (id) DO UPDATE SET campaign_id = EXCLUDED.campaign_id, name = EXCLUDED.name,
		external_ref = EXCLUDED.external_ref, age_min = EXCLUDED.age_min, age_max = EXCLUDED.age_max,
		gender = EXCLUDED.gender, countries = EXCLUDED.countries, interests = EXCLUDED.interests,
		behaviors = EXCLUDED.behaviors, publisher_platforms = EXCLUDED.publisher_platforms,
		daily_budget = EXCLUDED.daily_budget, lifetime_budget = EXCLUDED.lifetime_budget,
		optimization_goal = EXCLUDED.optimization_goal, billing_event = EXCLUDED.billing_event,
		bid_strategy = EXCLUDED.bid_strategy, bid_amount = EXCLUDED.bid_amount,
		promoted_object = EXCLUDED.promoted_object, attribution_spec = EXCLUDED.attribution_spec,
		start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		default_landing_url = EXCLUDED.default_landing_url, page_ref = EXCLUDED.page_ref,
		updated_at = EXCLUDED.updated_at`,
		pl.ID, pl.CampaignID, pl.Name, nullString(pl.ExternalRef), intPtr(pl.Targeting.AgeMin), intPtr(pl.Targeting.AgeMax),
		nullString(pl.Targeting.Gender), pq.Array(pl.Targeting.Countries), interests, behaviors,
		pq.Array(pl.Targeting.PublisherPlatforms), pl.DailyBudget, pl.LifetimeBudget,
		nullString(pl.OptimizationGoal), nullString(pl.BillingEvent), nullString(pl.BidStrategy), pl.BidAmount,
		promoted, attribution, pl.StartTime, pl.EndTime, nullString(pl.DefaultLandingURL), nullString(pl.PageRef), updated)
	if err != nil {
		return fmt.Errorf("save placement %s: %w", pl.ID, err)
	}
	return nil
}

func (p *Postgres) GetComponent(ctx context.Context, id string) (*models.Component, error) {
	var c models.Component
	var kind string
	var text, mediaType, mediaURL sql.NullString
	var metadata []byte
	err := p.DB.QueryRowContext(ctx, `SELECT id, account_id, kind, text, media_type, media_url, metadata, updated_at FROM components WHERE id = $1`, id).
		Scan(&c.ID, &c.AccountID, &kind, &text, &mediaType, &mediaURL, &metadata, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get component %s: %w", id, notFound(err))
	}
	c.Kind = models.ComponentKind(kind)
	c.Text = text.String
	c.MediaType = mediaType.String
	c.MediaURL = mediaURL.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("parse component %s metadata: %w", id, err)
		}
	}
	return &c, nil
}

func (p *Postgres) SaveComponent(ctx context.Context, c *models.Component) error {
	metadata, err := jsonOrNull(c.Metadata, len(c.Metadata) > 0)
	if err != nil {
		return err
	}
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = p.DB.ExecContext(ctx, `INSERT INTO components (id, account_id, kind, text, media_type, media_url, metadata, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET account_id = EXCLUDED.account_id, kind = EXCLUDED.kind, text = EXCLUDED.text,
		media_type = EXCLUDED.media_type, media_url = EXCLUDED.media_url, metadata = EXCLUDED.metadata,
		updated_at = EXCLUDED.updated_at`,
		c.ID, c.AccountID, string(c.Kind), nullString(c.Text), nullString(c.MediaType), nullString(c.MediaURL), metadata, updated)
	if err != nil {
		return fmt.Errorf("save component %s: %w", c.ID, err)
	}
	return nil
}

const combinationColumns = `id, placement_id, asset_id, headline_id, body_id, description_id, cta_id, cta_type,
	landing_url, deployed, external_ad_ref, external_creative_ref, deployed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCombination(row rowScanner) (*models.Combination, error) {
	var c models.Combination
	var asset, headline, body, description, cta, ctaType, landing, adRef, creativeRef sql.NullString
	var deployedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.PlacementID, &asset, &headline, &body, &description, &cta, &ctaType,
		&landing, &c.Deployed, &adRef, &creativeRef, &deployedAt); err != nil {
		return nil, err
	}
	c.AssetID = asset.String
	c.HeadlineID = headline.String
	c.BodyID = body.String
	c.DescriptionID = description.String
	c.CTAID = cta.String
	c.CTAType = ctaType.String
	c.LandingURL = landing.String
	c.ExternalAdRef = adRef.String
	c.ExternalCreativeRef = creativeRef.String
	if deployedAt.Valid {
		t := deployedAt.Time
		c.DeployedAt = &t
	}
	return &c, nil
}

func (p *Postgres) GetCombination(ctx context.Context, id string) (*models.Combination, error) {
	c, err := scanCombination(p.DB.QueryRowContext(ctx, `SELECT `+combinationColumns+` FROM combinations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get combination %s: %w", id, notFound(err))
	}
	return c, nil
}

func (p *Postgres) SaveCombination(ctx context.Context, c *models.Combination) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO combinations (`+combinationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET placement_id = EXCLUDED.placement_id, asset_id = EXCLUDED.asset_id,
		headline_id = EXCLUDED.headline_id, body_id = EXCLUDED.body_id, description_id = EXCLUDED.description_id,
		cta_id = EXCLUDED.cta_id, cta_type = EXCLUDED.cta_type, landing_url = EXCLUDED.landing_url,
		deployed = EXCLUDED.deployed, external_ad_ref = EXCLUDED.external_ad_ref,
		external_creative_ref = EXCLUDED.external_creative_ref, deployed_at = EXCLUDED.deployed_at`,
		c.ID, c.PlacementID, nullString(c.AssetID), nullString(c.HeadlineID), nullString(c.BodyID),
		nullString(c.DescriptionID), nullString(c.CTAID), nullString(c.CTAType), nullString(c.LandingURL),
		c.Deployed, nullString(c.ExternalAdRef), nullString(c.ExternalCreativeRef), c.DeployedAt)
	if err != nil {
		return fmt.Errorf("save combination %s: %w", c.ID, err)
	}
	return nil
}

func (p *Postgres) ListDeployedCombinations(ctx context.Context) ([]models.Combination, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+combinationColumns+` FROM combinations
		WHERE deployed AND external_ad_ref IS NOT NULL AND external_ad_ref <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query deployed combinations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.Combination
	for rows.Next() {
		c, err := scanCombination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan combination: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func intPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// jsonOrNull encodes v for a JSONB column, or NULL when present is false.
func jsonOrNull(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(raw), nil
}
