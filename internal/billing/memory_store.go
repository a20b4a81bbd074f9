package billing

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory SubscriptionStore for development and tests.
// The mutex gives the same single-writer semantics per key as the Postgres
// ON CONFLICT upsert.
type MemoryStore struct {
	mu      sync.RWMutex
	primary map[string]*Subscription // tenantID → record
	addons  map[string]*Subscription // tenantID + "\x00" + addonSlug → record
}

// NewMemoryStore creates a new in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		primary: make(map[string]*Subscription),
		addons:  make(map[string]*Subscription),
	}
}

func addonKey(tenantID, addonSlug string) string {
	return tenantID + "\x00" + addonSlug
}

func (m *MemoryStore) Upsert(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	if sub.Kind == KindAddon {
		m.addons[addonKey(sub.TenantID, sub.AddonSlug)] = &cp
	} else {
		m.primary[sub.TenantID] = &cp
	}
	return nil
}

func (m *MemoryStore) GetByTenant(_ context.Context, tenantID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.primary[tenantID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *MemoryStore) GetAddon(_ context.Context, tenantID, addonSlug string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.addons[addonKey(tenantID, addonSlug)]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

// Count returns how many records exist in total. Test helper.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.primary) + len(m.addons)
}

var _ SubscriptionStore = (*MemoryStore)(nil)
