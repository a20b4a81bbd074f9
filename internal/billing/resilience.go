package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/dualiteteste-sys/revo-billing/internal/circuitbreaker"
	"github.com/dualiteteste-sys/revo-billing/internal/retry"
)

// ErrProviderUnavailable is returned when the provider circuit is open.
var ErrProviderUnavailable = errors.New("billing: payment provider unavailable")

const (
	providerMaxAttempts = 3
	providerBaseDelay   = 200 * time.Millisecond
)

// resilientProvider wraps a ProviderClient with retries for transient
// failures and a circuit breaker per operation. Stripe 4xx responses are
// permanent: retrying a bad request cannot change the answer.
type resilientProvider struct {
	inner   ProviderClient
	breaker *circuitbreaker.Breaker
}

// NewResilientProvider decorates client with retry and circuit breaking.
func NewResilientProvider(client ProviderClient) ProviderClient {
	return &resilientProvider{
		inner:   client,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

func (p *resilientProvider) call(ctx context.Context, op string, fn func() error) error {
	if !p.breaker.Allow(op) {
		return ErrProviderUnavailable
	}
	err := retry.Do(ctx, providerMaxAttempts, providerBaseDelay, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode < http.StatusInternalServerError {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		// Client errors are the caller's problem, not provider health.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode < http.StatusInternalServerError {
			p.breaker.RecordSuccess(op)
			return err
		}
		p.breaker.RecordFailure(op)
		return err
	}
	p.breaker.RecordSuccess(op)
	return nil
}

func (p *resilientProvider) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	var cust *stripe.Customer
	err := p.call(ctx, "customer_create", func() error {
		var err error
		cust, err = p.inner.CreateCustomer(ctx, params)
		return err
	})
	return cust, err
}

func (p *resilientProvider) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	var cust *stripe.Customer
	err := p.call(ctx, "customer_get", func() error {
		var err error
		cust, err = p.inner.GetCustomer(ctx, id)
		return err
	})
	return cust, err
}

func (p *resilientProvider) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	var session *stripe.CheckoutSession
	err := p.call(ctx, "checkout_create", func() error {
		var err error
		session, err = p.inner.CreateCheckoutSession(ctx, params)
		return err
	})
	return session, err
}

func (p *resilientProvider) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	var session *stripe.CheckoutSession
	err := p.call(ctx, "checkout_get", func() error {
		var err error
		session, err = p.inner.GetCheckoutSession(ctx, id)
		return err
	})
	return session, err
}

func (p *resilientProvider) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	var session *stripe.BillingPortalSession
	err := p.call(ctx, "portal_create", func() error {
		var err error
		session, err = p.inner.CreatePortalSession(ctx, params)
		return err
	})
	return session, err
}
