package tenant

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// PostgresStore persists tenants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed tenant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tenant tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id                 VARCHAR(64) PRIMARY KEY,
			name               VARCHAR(255) NOT NULL,
			slug               VARCHAR(64) NOT NULL UNIQUE,
			stripe_customer_id VARCHAR(255) UNIQUE,
			status             VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS tenant_members (
			user_id   VARCHAR(64) NOT NULL,
			tenant_id VARCHAR(64) NOT NULL,
			PRIMARY KEY (user_id, tenant_id)
		);
		CREATE INDEX IF NOT EXISTS idx_tenants_stripe_customer ON tenants(stripe_customer_id);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, t *Tenant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, stripe_customer_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		t.ID, t.Name, t.Slug, t.StripeCustomerID, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, stripe_customer_id, status, created_at, updated_at
		FROM tenants WHERE id = $1`, id))
}

func (p *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, stripe_customer_id, status, created_at, updated_at
		FROM tenants WHERE slug = $1`, slug))
}

func (p *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE tenants SET name = $1, stripe_customer_id = NULLIF($2, ''), status = $3, updated_at = $4
		WHERE id = $5`,
		t.Name, t.StripeCustomerID, string(t.Status), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// SetStripeCustomerID attaches the customer only when the column is still
// empty, so a concurrent first checkout cannot overwrite an earlier winner.
func (p *PostgresStore) SetStripeCustomerID(ctx context.Context, tenantID, customerID string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE tenants SET stripe_customer_id = $1, updated_at = NOW()
		WHERE id = $2 AND stripe_customer_id IS NULL`,
		customerID, tenantID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the tenant does not exist or a customer is already attached.
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTenantNotFound
		}
	}
	return nil
}

func (p *PostgresStore) IsMember(ctx context.Context, userID, tenantID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tenant_members WHERE user_id = $1 AND tenant_id = $2
		)`, userID, tenantID).Scan(&exists)
	return exists, err
}

func (p *PostgresStore) AddMember(ctx context.Context, userID, tenantID string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tenant_members (user_id, tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, tenant_id) DO NOTHING`,
		userID, tenantID,
	)
	return err
}

func (p *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	t := &Tenant{}
	var (
		status   string
		stripeID sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &stripeID, &status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	if stripeID.Valid {
		t.StripeCustomerID = stripeID.String
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
