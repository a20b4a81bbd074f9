package tenant

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
	members map[string]map[string]struct{} // tenantID → set of userIDs
}

// NewMemoryStore creates a new in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]*Tenant),
		members: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Create(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Slug == t.Slug {
			return ErrSlugTaken
		}
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (m *MemoryStore) Update(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; !ok {
		return ErrTenantNotFound
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) SetStripeCustomerID(_ context.Context, tenantID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return ErrTenantNotFound
	}
	if t.StripeCustomerID == "" {
		t.StripeCustomerID = customerID
		t.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) IsMember(_ context.Context, userID, tenantID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users, ok := m.members[tenantID]
	if !ok {
		return false, nil
	}
	_, ok = users[userID]
	return ok, nil
}

func (m *MemoryStore) AddMember(_ context.Context, userID, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[tenantID] == nil {
		m.members[tenantID] = make(map[string]struct{})
	}
	m.members[tenantID][userID] = struct{}{}
	return nil
}

var _ Store = (*MemoryStore)(nil)
