package billing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/dualiteteste-sys/revo-billing/internal/catalog"
)

// fakeCustomers serves customer lookups for the metadata fallback path.
type fakeCustomers struct {
	customers map[string]*stripe.Customer
	err       error
	calls     int
}

func (f *fakeCustomers) GetCustomer(_ context.Context, id string) (*stripe.Customer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if cust, ok := f.customers[id]; ok {
		return cust, nil
	}
	return nil, &stripe.Error{HTTPStatusCode: 404}
}

// failingStore rejects every upsert.
type failingStore struct {
	MemoryStore
}

func (f *failingStore) Upsert(context.Context, *Subscription) error {
	return errors.New("connection refused")
}

func testCatalog() *catalog.MemoryStore {
	store := catalog.NewMemoryStore()
	store.AddPlan(catalog.Plan{PriceID: "price_123", Slug: "pro", Cycle: catalog.CycleMonthly, Active: true})
	store.AddAddon(catalog.Addon{PriceID: "price_seats", Slug: "extra-seats", Cycle: catalog.CycleMonthly, Active: true})
	return store
}

func newTestReconciler(subs SubscriptionStore, customers CustomerFetcher) *Reconciler {
	if customers == nil {
		customers = &fakeCustomers{}
	}
	return NewReconciler(subs, catalog.NewResolver(testCatalog()), customers, slog.Default())
}

func providerSub(tenantID string) *stripe.Subscription {
	sub := &stripe.Subscription{
		ID:               "sub_1",
		Status:           stripe.SubscriptionStatus("trialing"),
		CurrentPeriodEnd: time.Now().Add(14 * 24 * time.Hour).Unix(),
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "price_123"}}},
		},
		Customer: &stripe.Customer{ID: "cus_1"},
		Metadata: map[string]string{},
	}
	if tenantID != "" {
		sub.Metadata[MetadataTenantKey] = tenantID
	}
	return sub
}

func TestReconcile_CreatedWritesRecord(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)

	require.NoError(t, r.Reconcile(context.Background(), providerSub("T1"), EventSubscriptionCreated))

	got, err := store.GetByTenant(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, got.Status)
	assert.Equal(t, "pro", got.PlanSlug)
	assert.Equal(t, catalog.CycleMonthly, got.Cycle)
	assert.Equal(t, "sub_1", got.StripeSubscriptionID)
	assert.Equal(t, "price_123", got.StripePriceID)
	require.NotNil(t, got.CurrentPeriodEnd)
}

func TestReconcile_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)
	ctx := context.Background()

	sub := providerSub("T1")
	require.NoError(t, r.Reconcile(ctx, sub, EventSubscriptionCreated))
	first, err := store.GetByTenant(ctx, "T1")
	require.NoError(t, err)

	// Redelivery of the same event converges on the same state, no extra rows
	require.NoError(t, r.Reconcile(ctx, sub, EventSubscriptionUpdated))
	second, err := store.GetByTenant(ctx, "T1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count())
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.PlanSlug, second.PlanSlug)
	assert.Equal(t, first.StripeSubscriptionID, second.StripeSubscriptionID)
	assert.Equal(t, first.StripePriceID, second.StripePriceID)
}

func TestReconcile_DeletedCancelsWithoutRemoving(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)
	ctx := context.Background()

	require.NoError(t, r.Reconcile(ctx, providerSub("T1"), EventSubscriptionCreated))

	// The deleted payload still claims "active"; deletion wins regardless
	del := providerSub("T1")
	del.Status = stripe.SubscriptionStatus("active")
	require.NoError(t, r.Reconcile(ctx, del, EventSubscriptionDeleted))

	got, err := store.GetByTenant(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)
	assert.Equal(t, "pro", got.PlanSlug)
	assert.Equal(t, "sub_1", got.StripeSubscriptionID)
	assert.Equal(t, 1, store.Count())
}

func TestReconcile_UnmappedPriceStillWrites(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)

	sub := providerSub("T1")
	sub.Items.Data[0].Price.ID = "price_unknown"
	require.NoError(t, r.Reconcile(context.Background(), sub, EventSubscriptionCreated))

	got, err := store.GetByTenant(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, got.Status)
	assert.Empty(t, got.PlanSlug)
	assert.Empty(t, string(got.Cycle))
	assert.Equal(t, "price_unknown", got.StripePriceID)
	require.NotNil(t, got.CurrentPeriodEnd)
}

func TestReconcile_UnknownStatusNormalized(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)

	sub := providerSub("T1")
	sub.Status = stripe.SubscriptionStatus("paused")
	require.NoError(t, r.Reconcile(context.Background(), sub, EventSubscriptionUpdated))

	got, err := store.GetByTenant(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestReconcile_TenantFromCustomerMetadata(t *testing.T) {
	store := NewMemoryStore()
	customers := &fakeCustomers{customers: map[string]*stripe.Customer{
		"cus_1": {ID: "cus_1", Metadata: map[string]string{MetadataTenantKey: "T9"}},
	}}
	r := newTestReconciler(store, customers)

	require.NoError(t, r.Reconcile(context.Background(), providerSub(""), EventSubscriptionCreated))

	assert.Equal(t, 1, customers.calls)
	got, err := store.GetByTenant(context.Background(), "T9")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, got.Status)
}

func TestReconcile_NoTenantAnywhereIsDropped(t *testing.T) {
	store := NewMemoryStore()
	customers := &fakeCustomers{customers: map[string]*stripe.Customer{
		"cus_1": {ID: "cus_1", Metadata: map[string]string{}},
	}}
	r := newTestReconciler(store, customers)

	// Acked as success: redelivery cannot fix a structurally incomplete event
	require.NoError(t, r.Reconcile(context.Background(), providerSub(""), EventSubscriptionCreated))
	assert.Equal(t, 0, store.Count())
}

func TestReconcile_CustomerFetchFailurePropagates(t *testing.T) {
	store := NewMemoryStore()
	customers := &fakeCustomers{err: errors.New("api down")}
	r := newTestReconciler(store, customers)

	err := r.Reconcile(context.Background(), providerSub(""), EventSubscriptionCreated)
	require.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestReconcile_StoreFailurePropagates(t *testing.T) {
	r := newTestReconciler(&failingStore{}, nil)

	err := r.Reconcile(context.Background(), providerSub("T1"), EventSubscriptionCreated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert subscription")
}

func TestReconcile_Addon(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)
	ctx := context.Background()

	sub := providerSub("T1")
	sub.ID = "sub_addon"
	sub.Metadata[MetadataKindKey] = "addon"
	sub.Metadata[MetadataAddonSlugKey] = "extra-seats"
	sub.Items.Data[0].Price.ID = "price_seats"
	sub.Status = stripe.SubscriptionStatus("active")

	require.NoError(t, r.Reconcile(ctx, sub, EventSubscriptionCreated))

	got, err := store.GetAddon(ctx, "T1", "extra-seats")
	require.NoError(t, err)
	assert.Equal(t, KindAddon, got.Kind)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, catalog.CycleMonthly, got.Cycle)

	// The addon record does not collide with the primary one
	_, err = store.GetByTenant(ctx, "T1")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestReconcile_AddonWithoutSlugDropped(t *testing.T) {
	store := NewMemoryStore()
	r := newTestReconciler(store, nil)

	sub := providerSub("T1")
	sub.Metadata[MetadataKindKey] = "addon"
	require.NoError(t, r.Reconcile(context.Background(), sub, EventSubscriptionCreated))
	assert.Equal(t, 0, store.Count())
}
