// Package billing reconciles local subscription state with Stripe.
//
// Stripe delivers subscription lifecycle events at least once and in no
// particular order across retries. The reconciler treats every event as the
// full provider truth for one subscription and overwrites the local record
// wholesale through an atomic upsert, so redelivery and concurrent retries
// converge on the same state.
package billing

import (
	"errors"
	"time"

	"github.com/dualiteteste-sys/revo-billing/internal/catalog"
)

// Errors
var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrNoCustomer           = errors.New("billing: no stripe customer on file")
)

// Status is the reconciled subscription status.
type Status string

const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
)

var knownStatuses = map[Status]struct{}{
	StatusTrialing:          {},
	StatusActive:            {},
	StatusPastDue:           {},
	StatusCanceled:          {},
	StatusUnpaid:            {},
	StatusIncomplete:        {},
	StatusIncompleteExpired: {},
}

// NormalizeStatus maps a provider status string onto the closed internal
// enum. Unrecognised statuses (future Stripe additions) normalize to
// StatusActive rather than failing the event: a tenant keeps access until a
// recognisable status arrives. known is false for such fallbacks so callers
// can log them.
func NormalizeStatus(raw string) (status Status, known bool) {
	s := Status(raw)
	if _, ok := knownStatuses[s]; ok {
		return s, true
	}
	return StatusActive, false
}

// Kind distinguishes the primary plan subscription from addon purchases.
type Kind string

const (
	KindPrimary Kind = "primary"
	KindAddon   Kind = "addon"
)

// Subscription is the reconciled state for one tenant subscription: one row
// per tenant for the primary plan, one row per (tenant, addon slug) for
// addons. Rows are never deleted; a provider deletion lands as
// StatusCanceled.
type Subscription struct {
	TenantID             string        `json:"tenantId"`
	Kind                 Kind          `json:"kind"`
	AddonSlug            string        `json:"addonSlug,omitempty"`
	Status               Status        `json:"status"`
	CurrentPeriodEnd     *time.Time    `json:"currentPeriodEnd,omitempty"`
	StripeSubscriptionID string        `json:"stripeSubscriptionId"`
	StripePriceID        string        `json:"stripePriceId"`
	PlanSlug             string        `json:"planSlug,omitempty"` // empty when the price is unmapped
	Cycle                catalog.Cycle `json:"billingCycle,omitempty"`
	CancelAtPeriodEnd    bool          `json:"cancelAtPeriodEnd"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}
