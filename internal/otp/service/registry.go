// Package service implements OTP issuance and verification for linked end-users.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-otp-relay/backend/internal/codes"
	linkdomain "tg-otp-relay/backend/internal/link/domain"
	"tg-otp-relay/backend/internal/otp/domain"
	"tg-otp-relay/backend/internal/otp/repository"
)

// Sentinel errors for the OTP registry; the HTTP layer maps each to its own status.
var (
	ErrNotLinked   = errors.New("phone number is not linked")
	ErrNoActiveOTP = errors.New("no active otp")
	ErrOTPExpired  = errors.New("otp expired")
	ErrOTPMismatch = errors.New("otp mismatch")
)

// DefaultOTPTTL is how long an issued OTP stays verifiable.
const DefaultOTPTTL = 5 * time.Minute

// LinkRepo is the minimal link lookup needed to check that a pair is linked.
type LinkRepo interface {
	GetLink(ctx context.Context, tenantID, phone string) (*linkdomain.EndUserLink, error)
}

// Issued is the result of Issue. Code is the plain OTP; it is never stored.
type Issued struct {
	Code      string
	ChatID    int64
	ExpiresAt time.Time
}

// Registry owns OTP records: at most one outstanding code per (tenant, phone).
type Registry struct {
	repo  repository.Repository
	links LinkRepo
	ttl   time.Duration
	genF  func() (string, error)
	nowF  func() time.Time
}

// NewRegistry returns a Registry. ttl <= 0 uses DefaultOTPTTL.
func NewRegistry(repo repository.Repository, links LinkRepo, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &Registry{
		repo:  repo,
		links: links,
		ttl:   ttl,
		genF:  codes.GenerateOTP,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the configured OTP lifetime.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Issue generates a new OTP for a linked (tenantID, phone), replacing any outstanding one.
// Delivery is the caller's job and its outcome does not affect the stored code.
func (r *Registry) Issue(ctx context.Context, tenantID, phone string) (*Issued, error) {
	link, err := r.links.GetLink(ctx, tenantID, phone)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link == nil {
		return nil, ErrNotLinked
	}
	code, err := r.genF()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	now := r.nowF()
	rec := &domain.Record{
		TenantID:    tenantID,
		PhoneNumber: phone,
		CodeHash:    codes.HashOTP(code),
		ExpiresAt:   now.Add(r.ttl),
		CreatedAt:   now,
	}
	if err := r.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}
	return &Issued{Code: code, ChatID: link.ChatID, ExpiresAt: rec.ExpiresAt}, nil
}

// Verify checks submitted against the outstanding OTP. A match deletes the record, so a
// replay returns ErrNoActiveOTP. A mismatch keeps it for retries until expiry.
func (r *Registry) Verify(ctx context.Context, tenantID, phone, submitted string) error {
	now := r.nowF()
	rec, err := r.repo.Get(ctx, tenantID, phone)
	if err != nil {
		return fmt.Errorf("get otp: %w", err)
	}
	if rec == nil {
		return ErrNoActiveOTP
	}
	if rec.Expired(now) {
		if err := r.repo.DeleteExpired(ctx, tenantID, phone, now); err != nil {
			return fmt.Errorf("delete expired otp: %w", err)
		}
		return ErrOTPExpired
	}
	if !codes.OTPEqual(submitted, rec.CodeHash) {
		return ErrOTPMismatch
	}
	ok, err := r.repo.Consume(ctx, tenantID, phone, rec.CodeHash, now)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		// A concurrent verify or a re-issue got there first.
		return r.consumeMissReason(ctx, tenantID, phone, now)
	}
	return nil
}

// consumeMissReason re-reads the pair after a failed consume. A record that is still
// live belongs to a newer issue, so the submitted code no longer matches it.
func (r *Registry) consumeMissReason(ctx context.Context, tenantID, phone string, now time.Time) error {
	cur, err := r.repo.Get(ctx, tenantID, phone)
	if err != nil {
		return fmt.Errorf("get otp: %w", err)
	}
	switch {
	case cur == nil:
		return ErrNoActiveOTP
	case cur.Expired(now):
		return ErrOTPExpired
	default:
		return ErrOTPMismatch
	}
}

// PurgeExpired deletes all expired OTP records.
func (r *Registry) PurgeExpired(ctx context.Context) (int64, error) {
	return r.repo.PurgeExpired(ctx, r.nowF())
}
