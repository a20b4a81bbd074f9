package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/dualiteteste-sys/revo-billing/internal/catalog"
	"github.com/dualiteteste-sys/revo-billing/internal/traces"
)

// CustomerFetcher reads a Stripe customer; used to fall back to customer
// metadata when a subscription carries no tenant correlation of its own.
type CustomerFetcher interface {
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
}

// Reconciler converges the local subscription record to provider truth.
//
// Semantics are last-arrival-wins, not last-event-timestamp-wins: Stripe's
// envelope has no object version that is safe to compare across event types,
// so a delayed update delivered after a deletion can resurrect a canceled
// record. Callers that need causal ordering must add a version check here.
type Reconciler struct {
	subs      SubscriptionStore
	resolver  *catalog.Resolver
	customers CustomerFetcher
	logger    *slog.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(subs SubscriptionStore, resolver *catalog.Resolver, customers CustomerFetcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{subs: subs, resolver: resolver, customers: customers, logger: logger}
}

// Reconcile derives the canonical local record from a verified provider
// subscription object and applies it through one atomic upsert. Re-applying
// the same event is a no-op beyond the write itself. Storage and provider
// errors propagate so the delivery fails loudly and Stripe redelivers;
// events with no derivable tenant are logged and dropped, since redelivery
// cannot complete them.
func (r *Reconciler) Reconcile(ctx context.Context, sub *stripe.Subscription, kind EventKind) error {
	ctx, span := traces.StartSpan(ctx, "billing.reconcile", traces.SubscriptionID(sub.ID))
	defer span.End()

	tenantID, err := r.tenantFor(ctx, sub)
	if err != nil {
		reconcilesTotal.WithLabelValues("error").Inc()
		return err
	}
	if tenantID == "" {
		reconcilesTotal.WithLabelValues("no_tenant").Inc()
		r.logger.Warn("subscription event has no tenant correlation, dropping",
			"subscription", sub.ID)
		return nil
	}
	span.SetAttributes(traces.TenantID(tenantID))

	record := &Subscription{
		TenantID:             tenantID,
		Kind:                 KindPrimary,
		StripeSubscriptionID: sub.ID,
		StripePriceID:        firstPriceID(sub),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		UpdatedAt:            time.Now(),
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		record.CurrentPeriodEnd = &end
	}

	if sub.Metadata[MetadataKindKey] == metadataKindAddon {
		record.Kind = KindAddon
		record.AddonSlug = sub.Metadata[MetadataAddonSlugKey]
		if record.AddonSlug == "" {
			reconcilesTotal.WithLabelValues("no_addon_slug").Inc()
			r.logger.Warn("addon subscription event without addon slug, dropping",
				"subscription", sub.ID, "tenant", tenantID)
			return nil
		}
	}

	// Price is authoritative for plan identity; an unmapped price still gets
	// its status and timestamps written, with plan fields left unset.
	ref, found, err := r.resolver.Resolve(ctx, record.StripePriceID)
	if err != nil {
		reconcilesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("resolve price %s: %w", record.StripePriceID, err)
	}
	if found {
		record.Cycle = ref.Cycle
		if record.Kind == KindPrimary {
			record.PlanSlug = ref.Slug
		}
	} else {
		unmappedPricesTotal.Inc()
		r.logger.Warn("no catalogue entry for price, writing record without plan",
			"price", record.StripePriceID, "tenant", tenantID)
	}

	if kind == EventSubscriptionDeleted {
		// Deletion cancels the record, it never removes the row.
		record.Status = StatusCanceled
	} else {
		status, known := NormalizeStatus(string(sub.Status))
		if !known {
			r.logger.Warn("unknown provider subscription status, normalizing",
				"status", string(sub.Status), "normalized", string(status), "tenant", tenantID)
		}
		record.Status = status
	}

	if err := r.subs.Upsert(ctx, record); err != nil {
		reconcilesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("upsert subscription for tenant %s: %w", tenantID, err)
	}

	reconcilesTotal.WithLabelValues("applied").Inc()
	r.logger.Info("subscription reconciled",
		"tenant", tenantID,
		"kind", string(record.Kind),
		"status", string(record.Status),
		"plan", record.PlanSlug,
	)
	return nil
}

// tenantFor resolves the target tenant: subscription metadata first, then
// the provider customer record's metadata.
func (r *Reconciler) tenantFor(ctx context.Context, sub *stripe.Subscription) (string, error) {
	if id := sub.Metadata[MetadataTenantKey]; id != "" {
		return id, nil
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", nil
	}
	cust, err := r.customers.GetCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return "", fmt.Errorf("fetch customer %s: %w", sub.Customer.ID, err)
	}
	return cust.Metadata[MetadataTenantKey], nil
}

func firstPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	item := sub.Items.Data[0]
	if item == nil || item.Price == nil {
		return ""
	}
	return item.Price.ID
}
