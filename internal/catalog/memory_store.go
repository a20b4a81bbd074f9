package catalog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory catalogue for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	plans  []Plan
	addons []Addon
}

// NewMemoryStore creates a new in-memory catalogue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddPlan registers a plan entry.
func (m *MemoryStore) AddPlan(plan Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, plan)
}

// AddAddon registers an addon entry.
func (m *MemoryStore) AddAddon(addon Addon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addons = append(m.addons, addon)
}

func (m *MemoryStore) PlanByPriceID(_ context.Context, priceID string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, plan := range m.plans {
		if plan.Active && plan.PriceID == priceID {
			cp := plan
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) PlanBySlug(_ context.Context, slug string, cycle Cycle) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, plan := range m.plans {
		if plan.Active && plan.Slug == slug && plan.Cycle == cycle {
			cp := plan
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AddonByPriceID(_ context.Context, priceID string) (*Addon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, addon := range m.addons {
		if addon.Active && addon.PriceID == priceID {
			cp := addon
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

var _ Store = (*MemoryStore)(nil)
