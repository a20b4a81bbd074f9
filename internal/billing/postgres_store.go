package billing

import (
	"context"
	"database/sql"
	"time"

	"github.com/dualiteteste-sys/revo-billing/internal/catalog"
)

// PostgresStore persists subscriptions in PostgreSQL.
//
// Both tables carry the uniqueness constraints the reconciler relies on:
// subscriptions(tenant_id) and addon_subscriptions(tenant_id, addon_slug).
// INSERT ... ON CONFLICT DO UPDATE makes the wholesale overwrite a single
// atomic statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed subscription store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the subscription tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			tenant_id              VARCHAR(64) PRIMARY KEY,
			status                 VARCHAR(32) NOT NULL,
			current_period_end     TIMESTAMPTZ,
			stripe_subscription_id VARCHAR(255) NOT NULL DEFAULT '',
			stripe_price_id        VARCHAR(255) NOT NULL DEFAULT '',
			plan_slug              VARCHAR(64),
			billing_cycle          VARCHAR(16) NOT NULL DEFAULT '',
			cancel_at_period_end   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS addon_subscriptions (
			tenant_id              VARCHAR(64) NOT NULL,
			addon_slug             VARCHAR(64) NOT NULL,
			status                 VARCHAR(32) NOT NULL,
			current_period_end     TIMESTAMPTZ,
			stripe_subscription_id VARCHAR(255) NOT NULL DEFAULT '',
			stripe_price_id        VARCHAR(255) NOT NULL DEFAULT '',
			billing_cycle          VARCHAR(16) NOT NULL DEFAULT '',
			cancel_at_period_end   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tenant_id, addon_slug)
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_stripe_sub ON subscriptions(stripe_subscription_id);
	`)
	return err
}

func (p *PostgresStore) Upsert(ctx context.Context, sub *Subscription) error {
	if sub.Kind == KindAddon {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO addon_subscriptions
				(tenant_id, addon_slug, status, current_period_end, stripe_subscription_id,
				 stripe_price_id, billing_cycle, cancel_at_period_end, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tenant_id, addon_slug) DO UPDATE SET
				status                 = EXCLUDED.status,
				current_period_end     = EXCLUDED.current_period_end,
				stripe_subscription_id = EXCLUDED.stripe_subscription_id,
				stripe_price_id        = EXCLUDED.stripe_price_id,
				billing_cycle          = EXCLUDED.billing_cycle,
				cancel_at_period_end   = EXCLUDED.cancel_at_period_end,
				updated_at             = EXCLUDED.updated_at`,
			sub.TenantID, sub.AddonSlug, string(sub.Status), nullTime(sub.CurrentPeriodEnd),
			sub.StripeSubscriptionID, sub.StripePriceID, string(sub.Cycle),
			sub.CancelAtPeriodEnd, sub.UpdatedAt,
		)
		return err
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(tenant_id, status, current_period_end, stripe_subscription_id,
			 stripe_price_id, plan_slug, billing_cycle, cancel_at_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (tenant_id) DO UPDATE SET
			status                 = EXCLUDED.status,
			current_period_end     = EXCLUDED.current_period_end,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_price_id        = EXCLUDED.stripe_price_id,
			plan_slug              = EXCLUDED.plan_slug,
			billing_cycle          = EXCLUDED.billing_cycle,
			cancel_at_period_end   = EXCLUDED.cancel_at_period_end,
			updated_at             = EXCLUDED.updated_at`,
		sub.TenantID, string(sub.Status), nullTime(sub.CurrentPeriodEnd),
		sub.StripeSubscriptionID, sub.StripePriceID, sub.PlanSlug, string(sub.Cycle),
		sub.CancelAtPeriodEnd, sub.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetByTenant(ctx context.Context, tenantID string) (*Subscription, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT tenant_id, status, current_period_end, stripe_subscription_id,
		       stripe_price_id, plan_slug, billing_cycle, cancel_at_period_end, updated_at
		FROM subscriptions WHERE tenant_id = $1`, tenantID)
	return scanSubscription(row, KindPrimary, "")
}

func (p *PostgresStore) GetAddon(ctx context.Context, tenantID, addonSlug string) (*Subscription, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT tenant_id, status, current_period_end, stripe_subscription_id,
		       stripe_price_id, addon_slug, billing_cycle, cancel_at_period_end, updated_at
		FROM addon_subscriptions WHERE tenant_id = $1 AND addon_slug = $2`, tenantID, addonSlug)
	return scanSubscription(row, KindAddon, addonSlug)
}

func scanSubscription(row *sql.Row, kind Kind, addonSlug string) (*Subscription, error) {
	sub := &Subscription{Kind: kind, AddonSlug: addonSlug}
	var (
		status    string
		periodEnd sql.NullTime
		slug      sql.NullString
		cycle     string
	)
	err := row.Scan(&sub.TenantID, &status, &periodEnd, &sub.StripeSubscriptionID,
		&sub.StripePriceID, &slug, &cycle, &sub.CancelAtPeriodEnd, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	sub.Status = Status(status)
	if periodEnd.Valid {
		t := periodEnd.Time
		sub.CurrentPeriodEnd = &t
	}
	if kind == KindAddon {
		sub.AddonSlug = slug.String
	} else if slug.Valid {
		sub.PlanSlug = slug.String
	}
	sub.Cycle = catalog.Cycle(cycle)
	return sub, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ SubscriptionStore = (*PostgresStore)(nil)
