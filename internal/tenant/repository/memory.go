package repository

import (
	"context"
	"sync"

	"tg-otp-relay/backend/internal/tenant/domain"
)

// MemoryRepository is an in-memory Repository for dev mode and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Tenant
}

// NewMemoryRepository returns an empty in-memory tenant repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Tenant)}
}

// GetByID returns the tenant for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// Upsert creates or replaces the tenant with t.ID.
func (r *MemoryRepository) Upsert(ctx context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[t.ID] = *t
	return nil
}
