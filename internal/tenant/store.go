package tenant

import "context"

// Store persists tenant data and tenant-membership links.
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error

	// SetStripeCustomerID attaches the Stripe customer to a tenant if none is
	// attached yet. Safe to call concurrently; the first writer wins and later
	// calls are no-ops.
	SetStripeCustomerID(ctx context.Context, tenantID, customerID string) error

	// IsMember reports whether the user is linked to the tenant.
	IsMember(ctx context.Context, userID, tenantID string) (bool, error)
	AddMember(ctx context.Context, userID, tenantID string) error
}
