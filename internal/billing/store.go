package billing

import "context"

// SubscriptionStore persists reconciled subscription state.
//
// Upsert is the only write and must be atomic on the uniqueness key
// (tenant for primary records, tenant+addon-slug for addons): the store's
// conflict resolution is the sole serialization point for concurrent
// webhook deliveries.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *Subscription) error
	GetByTenant(ctx context.Context, tenantID string) (*Subscription, error)
	GetAddon(ctx context.Context, tenantID, addonSlug string) (*Subscription, error)
}
