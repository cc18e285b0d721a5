// Package devotp captures issued OTPs in memory so they can be read back over GET /dev/otp.
// Only wired when dev delivery is enabled and APP_ENV is not production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Capture is the last OTP issued for a (tenant, phone) pair.
type Capture struct {
	Code      string
	ChatID    int64
	Message   string
	ExpiresAt time.Time
}

// Store holds the last plain OTP per (tenant, phone) for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores c for (tenantID, phone) until c.ExpiresAt, replacing any earlier capture.
	Put(ctx context.Context, tenantID, phone string, c Capture)
	// Get returns the capture if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, tenantID, phone string) (c Capture, ok bool)
	// Delete drops the capture for (tenantID, phone), e.g. once its OTP was verified.
	Delete(ctx context.Context, tenantID, phone string)
}

type key struct {
	tenantID string
	phone    string
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[key]Capture
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[key]Capture),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores c for (tenantID, phone).
func (s *MemoryStore) Put(ctx context.Context, tenantID, phone string, c Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key{tenantID, phone}] = c
}

// Get returns the capture for (tenantID, phone) if present and not expired.
// An expired capture is removed unless a newer Put replaced it in the meantime.
func (s *MemoryStore) Get(ctx context.Context, tenantID, phone string) (Capture, bool) {
	k := key{tenantID, phone}
	s.mu.RLock()
	c, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return Capture{}, false
	}
	if !s.nowF().After(c.ExpiresAt) {
		return c, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[k]; ok && cur == c {
		delete(s.m, k)
	}
	return Capture{}, false
}

// Delete drops the capture for (tenantID, phone).
func (s *MemoryStore) Delete(ctx context.Context, tenantID, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key{tenantID, phone})
}
