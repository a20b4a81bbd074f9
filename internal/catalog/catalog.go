// Package catalog maps Stripe price IDs to the internal plan and addon
// catalogue.
//
// The catalogue is read-mostly configuration owned by a separate management
// process; billing only reads it, filtered to active entries.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no active catalogue entry matches.
var ErrNotFound = errors.New("catalog: not found")

// Cycle is the billing cycle of a catalogue entry.
type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleYearly  Cycle = "yearly"
)

// ValidCycle reports whether the cycle name is recognised.
func ValidCycle(c Cycle) bool {
	return c == CycleMonthly || c == CycleYearly
}

// Plan is a primary subscription catalogue entry.
type Plan struct {
	PriceID string `json:"priceId"` // Stripe price ID, unique
	Slug    string `json:"slug"`
	Cycle   Cycle  `json:"cycle"`
	Active  bool   `json:"active"`
}

// Addon is a secondary catalogue entry purchasable alongside a plan.
type Addon struct {
	PriceID string `json:"priceId"`
	Slug    string `json:"slug"`
	Cycle   Cycle  `json:"cycle"`
	Active  bool   `json:"active"`
}

// Store reads the plan and addon catalogues. All lookups see active entries
// only; inactive rows behave as absent.
type Store interface {
	PlanByPriceID(ctx context.Context, priceID string) (*Plan, error)
	PlanBySlug(ctx context.Context, slug string, cycle Cycle) (*Plan, error)
	AddonByPriceID(ctx context.Context, priceID string) (*Addon, error)
}

// Ref is a resolved catalogue reference.
type Ref struct {
	Slug  string
	Cycle Cycle
	Addon bool
}

// Resolver resolves Stripe price IDs against the catalogue. A missing
// mapping is a normal outcome, not an error: reconciliation still writes
// status and timestamps for unmapped prices.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given catalogue store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps a price ID to a plan or addon reference. found is false when
// no active entry matches; err is reserved for storage failures.
func (r *Resolver) Resolve(ctx context.Context, priceID string) (ref Ref, found bool, err error) {
	if priceID == "" {
		return Ref{}, false, nil
	}

	plan, err := r.store.PlanByPriceID(ctx, priceID)
	if err == nil {
		return Ref{Slug: plan.Slug, Cycle: plan.Cycle}, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Ref{}, false, err
	}

	addon, err := r.store.AddonByPriceID(ctx, priceID)
	if err == nil {
		return Ref{Slug: addon.Slug, Cycle: addon.Cycle, Addon: true}, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Ref{}, false, err
	}

	return Ref{}, false, nil
}
