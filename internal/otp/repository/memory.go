package repository

import (
	"context"
	"sync"
	"time"

	"tg-otp-relay/backend/internal/otp/domain"
)

type key struct {
	tenantID string
	phone    string
}

// MemoryRepository is an in-memory Repository for dev mode and tests.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[key]domain.Record
}

// NewMemoryRepository returns an empty in-memory OTP repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[key]domain.Record)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key{rec.TenantID, rec.PhoneNumber}] = *rec
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID, phone string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[key{tenantID, phone}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, tenantID, phone string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{tenantID, phone}
	if rec, ok := r.m[k]; ok && rec.Expired(now) {
		delete(r.m, k)
	}
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{tenantID, phone}
	rec, ok := r.m[k]
	if !ok || rec.CodeHash != codeHash || rec.Expired(now) {
		return false, nil
	}
	delete(r.m, k)
	return true, nil
}

func (r *MemoryRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.m {
		if rec.Expired(now) {
			delete(r.m, k)
			n++
		}
	}
	return n, nil
}
