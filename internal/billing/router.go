package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v81"

	"github.com/dualiteteste-sys/revo-billing/internal/traces"
)

// ErrMalformedEvent marks a verified event whose payload cannot be decoded.
// Redelivery cannot fix it, so the webhook endpoint answers 400 rather
// than 500.
var ErrMalformedEvent = errors.New("billing: malformed event payload")

// EventKind is the closed set of event classifications this service acts on.
// Everything outside the set is acknowledged and ignored, so new Stripe
// event types never produce errors.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventCheckoutCompleted
	EventSubscriptionCreated
	EventSubscriptionUpdated
	EventSubscriptionDeleted
)

func classify(eventType string) EventKind {
	switch eventType {
	case "checkout.session.completed":
		return EventCheckoutCompleted
	case "customer.subscription.created":
		return EventSubscriptionCreated
	case "customer.subscription.updated":
		return EventSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventSubscriptionDeleted
	default:
		return EventIgnored
	}
}

// Router classifies verified events and dispatches subscription lifecycle
// events to the reconciler. Downstream errors propagate so the webhook
// endpoint can answer 500 and Stripe redelivers.
type Router struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewRouter creates a new event router.
func NewRouter(reconciler *Reconciler, logger *slog.Logger) *Router {
	return &Router{reconciler: reconciler, logger: logger}
}

// Handle processes one verified event.
func (r *Router) Handle(ctx context.Context, event *stripe.Event) error {
	eventType := string(event.Type)

	ctx, span := traces.StartSpan(ctx, "billing.webhook", traces.EventType(eventType))
	defer span.End()

	kind := classify(eventType)
	switch kind {
	case EventCheckoutCompleted:
		// The subscription object does not exist until Stripe has set it up;
		// the authoritative state change arrives on the subsequent
		// customer.subscription.* events. Acknowledge and move on.
		webhookEventsTotal.WithLabelValues(eventType, "acked").Inc()
		return nil

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			webhookEventsTotal.WithLabelValues(eventType, "malformed").Inc()
			return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, eventType, err)
		}
		if err := r.reconciler.Reconcile(ctx, &sub, kind); err != nil {
			webhookEventsTotal.WithLabelValues(eventType, "error").Inc()
			return err
		}
		webhookEventsTotal.WithLabelValues(eventType, "ok").Inc()
		return nil

	default:
		r.logger.Debug("ignoring webhook event", "type", eventType)
		webhookEventsTotal.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}
}
