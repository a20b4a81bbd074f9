package billing

import (
	"context"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

func TestReconcileMetrics_AppliedOutcome(t *testing.T) {
	reconcilesTotal.Reset()

	subs := NewMemoryStore()
	r := newTestReconciler(subs, nil)
	require.NoError(t, r.Reconcile(context.Background(), providerSub("T1"), EventSubscriptionCreated))

	counter, err := reconcilesTotal.GetMetricWithLabelValues("applied")
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}

func TestReconcileMetrics_NoTenantOutcome(t *testing.T) {
	reconcilesTotal.Reset()

	subs := NewMemoryStore()
	r := newTestReconciler(subs, nil)
	sub := providerSub("T1")
	sub.Metadata = nil
	sub.Customer = nil
	require.NoError(t, r.Reconcile(context.Background(), sub, EventSubscriptionCreated))

	counter, err := reconcilesTotal.GetMetricWithLabelValues("no_tenant")
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}

func TestReconcileMetrics_MissingAddonSlugOutcome(t *testing.T) {
	reconcilesTotal.Reset()

	subs := NewMemoryStore()
	r := newTestReconciler(subs, nil)
	sub := providerSub("T1")
	sub.Metadata[MetadataKindKey] = metadataKindAddon
	require.NoError(t, r.Reconcile(context.Background(), sub, EventSubscriptionCreated))

	// Dropped with its own outcome, not conflated with missing tenants.
	counter, err := reconcilesTotal.GetMetricWithLabelValues("no_addon_slug")
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	assert.Equal(t, 1.0, m.Counter.GetValue())

	noTenant, err := reconcilesTotal.GetMetricWithLabelValues("no_tenant")
	require.NoError(t, err)
	m = &dto.Metric{}
	require.NoError(t, noTenant.Write(m))
	assert.Equal(t, 0.0, m.Counter.GetValue())
}

func TestWebhookMetrics_IgnoredEvent(t *testing.T) {
	webhookEventsTotal.Reset()

	router := NewRouter(newTestReconciler(NewMemoryStore(), nil), slog.Default())
	require.NoError(t, router.Handle(context.Background(), &stripe.Event{Type: "invoice.paid"}))

	counter, err := webhookEventsTotal.GetMetricWithLabelValues("invoice.paid", "ignored")
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}
