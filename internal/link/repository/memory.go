package repository

import (
	"context"
	"sync"
	"time"

	"tg-otp-relay/backend/internal/link/domain"
)

type pairKey struct {
	tenantID string
	phone    string
}

// MemoryRepository is an in-memory Repository. A single mutex makes every
// operation linearizable; no lock is held across calls outside the repository.
type MemoryRepository struct {
	mu     sync.Mutex
	codes  map[string]domain.LinkingCode
	byPair map[pairKey]string
	links  map[pairKey]domain.EndUserLink
}

// NewMemoryRepository returns an empty in-memory link repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		codes:  make(map[string]domain.LinkingCode),
		byPair: make(map[pairKey]string),
		links:  make(map[pairKey]domain.EndUserLink),
	}
}

func (r *MemoryRepository) UpsertLinkingCode(ctx context.Context, c *domain.LinkingCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey{c.TenantID, c.PhoneNumber}
	if existing, ok := r.codes[c.Code]; ok && (pairKey{existing.TenantID, existing.PhoneNumber}) != k {
		return ErrCodeTaken
	}
	if old, ok := r.byPair[k]; ok {
		delete(r.codes, old)
	}
	r.codes[c.Code] = *c
	r.byPair[k] = c.Code
	return nil
}

func (r *MemoryRepository) GetLinkingCode(ctx context.Context, code string) (*domain.LinkingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) DeleteExpiredLinkingCode(ctx context.Context, code string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[code]; ok && c.Expired(now) {
		r.deleteCodeLocked(c)
	}
	return nil
}

func (r *MemoryRepository) ConsumeLinkingCode(ctx context.Context, code string, now time.Time, id domain.ChatIdentity) (*domain.EndUserLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok || c.Expired(now) {
		return nil, nil
	}
	r.deleteCodeLocked(c)
	l := domain.EndUserLink{
		TenantID:       c.TenantID,
		PhoneNumber:    c.PhoneNumber,
		ChatID:         id.ChatID,
		TelegramUserID: id.TelegramUserID,
		LinkedAt:       now,
	}
	r.links[pairKey{c.TenantID, c.PhoneNumber}] = l
	return &l, nil
}

func (r *MemoryRepository) GetLink(ctx context.Context, tenantID, phone string) (*domain.EndUserLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[pairKey{tenantID, phone}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *MemoryRepository) UpsertLink(ctx context.Context, l *domain.EndUserLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[pairKey{l.TenantID, l.PhoneNumber}] = *l
	return nil
}

func (r *MemoryRepository) PurgeExpiredLinkingCodes(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.codes {
		if c.Expired(now) {
			r.deleteCodeLocked(c)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) deleteCodeLocked(c domain.LinkingCode) {
	delete(r.codes, c.Code)
	k := pairKey{c.TenantID, c.PhoneNumber}
	if r.byPair[k] == c.Code {
		delete(r.byPair, k)
	}
}
