package catalog

import (
	"context"
	"database/sql"
)

// PostgresStore reads the catalogue from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed catalogue store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the catalogue tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS plans (
			price_id      VARCHAR(255) PRIMARY KEY,
			slug          VARCHAR(64) NOT NULL,
			billing_cycle VARCHAR(16) NOT NULL,
			active        BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_slug_cycle
			ON plans(slug, billing_cycle) WHERE active;
		CREATE TABLE IF NOT EXISTS addons (
			price_id      VARCHAR(255) PRIMARY KEY,
			slug          VARCHAR(64) NOT NULL,
			billing_cycle VARCHAR(16) NOT NULL,
			active        BOOLEAN NOT NULL DEFAULT TRUE
		);
	`)
	return err
}

func (p *PostgresStore) PlanByPriceID(ctx context.Context, priceID string) (*Plan, error) {
	plan := &Plan{}
	var cycle string
	err := p.db.QueryRowContext(ctx, `
		SELECT price_id, slug, billing_cycle, active
		FROM plans WHERE price_id = $1 AND active = TRUE`, priceID).
		Scan(&plan.PriceID, &plan.Slug, &cycle, &plan.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plan.Cycle = Cycle(cycle)
	return plan, nil
}

func (p *PostgresStore) PlanBySlug(ctx context.Context, slug string, cycle Cycle) (*Plan, error) {
	plan := &Plan{}
	var c string
	err := p.db.QueryRowContext(ctx, `
		SELECT price_id, slug, billing_cycle, active
		FROM plans WHERE slug = $1 AND billing_cycle = $2 AND active = TRUE`, slug, string(cycle)).
		Scan(&plan.PriceID, &plan.Slug, &c, &plan.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plan.Cycle = Cycle(c)
	return plan, nil
}

func (p *PostgresStore) AddonByPriceID(ctx context.Context, priceID string) (*Addon, error) {
	addon := &Addon{}
	var cycle string
	err := p.db.QueryRowContext(ctx, `
		SELECT price_id, slug, billing_cycle, active
		FROM addons WHERE price_id = $1 AND active = TRUE`, priceID).
		Scan(&addon.PriceID, &addon.Slug, &cycle, &addon.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	addon.Cycle = Cycle(cycle)
	return addon, nil
}

var _ Store = (*PostgresStore)(nil)
