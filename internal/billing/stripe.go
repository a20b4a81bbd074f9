package billing

import (
	"context"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Metadata keys used to correlate Stripe objects with local records.
const (
	// MetadataTenantKey carries the tenant (empresa) ID on subscriptions,
	// customers, and checkout sessions.
	MetadataTenantKey = "empresa_id"
	// MetadataKindKey tags addon subscriptions ("kind" = "addon").
	MetadataKindKey = "kind"
	// MetadataAddonSlugKey carries the addon slug on addon subscriptions.
	MetadataAddonSlugKey = "addon_slug"

	metadataKindAddon = "addon"
)

// ProviderClient is the slice of the Stripe API this service uses. It is
// constructed once at startup and injected, never held as a package global,
// so handlers and the reconciler stay independently testable.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type stripeClient struct {
	api *client.API
}

// NewStripeClient creates a ProviderClient backed by the real Stripe API.
func NewStripeClient(secretKey string) ProviderClient {
	return &stripeClient{api: client.New(secretKey, nil)}
}

func (s *stripeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	return s.api.Customers.New(params)
}

func (s *stripeClient) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return s.api.Customers.Get(id, params)
}

func (s *stripeClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return s.api.CheckoutSessions.New(params)
}

func (s *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return s.api.CheckoutSessions.Get(id, params)
}

func (s *stripeClient) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	params.Context = ctx
	return s.api.BillingPortalSessions.New(params)
}

var _ ProviderClient = (*stripeClient)(nil)
