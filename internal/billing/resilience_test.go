package billing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) attempt() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyProvider) CreateCustomer(context.Context, *stripe.CustomerParams) (*stripe.Customer, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &stripe.Customer{ID: "cus_1"}, nil
}

func (f *flakyProvider) GetCustomer(context.Context, string) (*stripe.Customer, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &stripe.Customer{ID: "cus_1"}, nil
}

func (f *flakyProvider) CreateCheckoutSession(context.Context, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &stripe.CheckoutSession{ID: "cs_1"}, nil
}

func (f *flakyProvider) GetCheckoutSession(context.Context, string) (*stripe.CheckoutSession, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &stripe.CheckoutSession{ID: "cs_1"}, nil
}

func (f *flakyProvider) CreatePortalSession(context.Context, *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &stripe.BillingPortalSession{}, nil
}

func TestResilientProvider_RetriesTransientFailures(t *testing.T) {
	flaky := &flakyProvider{
		failures: 2,
		err:      &stripe.Error{HTTPStatusCode: http.StatusBadGateway},
	}
	p := NewResilientProvider(flaky)

	cust, err := p.CreateCustomer(context.Background(), &stripe.CustomerParams{})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", cust.ID)
	assert.Equal(t, 3, flaky.calls)
}

func TestResilientProvider_DoesNotRetryClientErrors(t *testing.T) {
	flaky := &flakyProvider{
		failures: 10,
		err:      &stripe.Error{HTTPStatusCode: http.StatusNotFound},
	}
	p := NewResilientProvider(flaky)

	_, err := p.GetCheckoutSession(context.Background(), "cs_missing")
	require.Error(t, err)

	// The original stripe error survives the wrapper for status mapping.
	var stripeErr *stripe.Error
	require.True(t, errors.As(err, &stripeErr))
	assert.Equal(t, http.StatusNotFound, stripeErr.HTTPStatusCode)
	assert.Equal(t, 1, flaky.calls)
}

func TestResilientProvider_OpensCircuitAfterRepeatedFailures(t *testing.T) {
	flaky := &flakyProvider{
		failures: 1000,
		err:      &stripe.Error{HTTPStatusCode: http.StatusServiceUnavailable},
	}
	p := NewResilientProvider(flaky)
	ctx := context.Background()

	// Each call retries internally, then records one breaker failure.
	for i := 0; i < 5; i++ {
		_, err := p.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{})
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrProviderUnavailable)
	}

	// Circuit is now open: the provider is not called at all.
	callsBefore := flaky.calls
	_, err := p.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, callsBefore, flaky.calls)
}

func TestResilientProvider_ClientErrorsDoNotTrip(t *testing.T) {
	flaky := &flakyProvider{
		failures: 1000,
		err:      &stripe.Error{HTTPStatusCode: http.StatusBadRequest},
	}
	p := NewResilientProvider(flaky)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := p.CreateCustomer(ctx, &stripe.CustomerParams{})
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrProviderUnavailable)
	}
}
