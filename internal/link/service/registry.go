// Package service implements the linking protocol: issuing linking codes to tenants and
// redeeming them from chat input.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-otp-relay/backend/internal/codes"
	"tg-otp-relay/backend/internal/link/domain"
	"tg-otp-relay/backend/internal/link/repository"
	tenantdomain "tg-otp-relay/backend/internal/tenant/domain"
)

// Sentinel errors for redemption; the bot maps each to its own reply.
var (
	ErrMalformedCode = errors.New("malformed linking code")
	ErrCodeNotFound  = errors.New("linking code not found")
	ErrCodeExpired   = errors.New("linking code expired")
)

// DefaultCodeTTL is how long a linking code stays redeemable.
const DefaultCodeTTL = 5 * time.Minute

// UnknownServiceName is shown to the end-user when the tenant record is gone.
const UnknownServiceName = "an unknown service"

const maxIssueAttempts = 5

// TenantRepo is the minimal tenant repository needed to name the service on redemption.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

// Issued is the result of IssueCode.
type Issued struct {
	Code      string
	ExpiresAt time.Time
}

// Redeemed is the result of Redeem.
type Redeemed struct {
	TenantID    string
	PhoneNumber string
	ServiceName string
	Link        *domain.EndUserLink
}

// Registry owns linking codes and end-user links.
type Registry struct {
	repo    repository.Repository
	tenants TenantRepo
	ttl     time.Duration
	genF    func() (string, error)
	nowF    func() time.Time
}

// NewRegistry returns a Registry. ttl <= 0 uses DefaultCodeTTL.
func NewRegistry(repo repository.Repository, tenants TenantRepo, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Registry{
		repo:    repo,
		tenants: tenants,
		ttl:     ttl,
		genF:    codes.GenerateLinkingCode,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueCode creates a linking code for (tenantID, phone), invalidating any code still
// outstanding for that pair. A value already held by another pair is regenerated.
func (r *Registry) IssueCode(ctx context.Context, tenantID, phone string) (*Issued, error) {
	now := r.nowF()
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := r.genF()
		if err != nil {
			return nil, fmt.Errorf("generate linking code: %w", err)
		}
		c := &domain.LinkingCode{
			Code:        code,
			TenantID:    tenantID,
			PhoneNumber: phone,
			ExpiresAt:   now.Add(r.ttl),
			CreatedAt:   now,
		}
		err = r.repo.UpsertLinkingCode(ctx, c)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store linking code: %w", err)
		}
		return &Issued{Code: c.Code, ExpiresAt: c.ExpiresAt}, nil
	}
	return nil, fmt.Errorf("store linking code: %w after %d attempts", repository.ErrCodeTaken, maxIssueAttempts)
}

// Redeem normalizes raw chat text, then consumes the matching linking code and links the
// pair to id. Exactly one concurrent caller can succeed for a given code.
func (r *Registry) Redeem(ctx context.Context, raw string, id domain.ChatIdentity) (*Redeemed, error) {
	code := codes.NormalizeLinkingCode(raw)
	if !codes.LooksLikeLinkingCode(code) {
		return nil, ErrMalformedCode
	}
	now := r.nowF()
	c, err := r.repo.GetLinkingCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get linking code: %w", err)
	}
	if c == nil {
		return nil, ErrCodeNotFound
	}
	if c.Expired(now) {
		if err := r.repo.DeleteExpiredLinkingCode(ctx, code, now); err != nil {
			return nil, fmt.Errorf("delete expired linking code: %w", err)
		}
		return nil, ErrCodeExpired
	}
	link, err := r.repo.ConsumeLinkingCode(ctx, code, now, id)
	if err != nil {
		return nil, fmt.Errorf("consume linking code: %w", err)
	}
	if link == nil {
		// Lost a race with another redemption, a re-issue, or expiry between read and claim.
		return nil, ErrCodeNotFound
	}
	out := &Redeemed{
		TenantID:    link.TenantID,
		PhoneNumber: link.PhoneNumber,
		ServiceName: UnknownServiceName,
		Link:        link,
	}
	if t, err := r.tenants.GetByID(ctx, link.TenantID); err == nil && t != nil && t.DisplayName != "" {
		out.ServiceName = t.DisplayName
	}
	return out, nil
}

// Link returns the end-user link for (tenantID, phone), or nil if not linked.
func (r *Registry) Link(ctx context.Context, tenantID, phone string) (*domain.EndUserLink, error) {
	return r.repo.GetLink(ctx, tenantID, phone)
}

// PurgeExpired deletes all expired linking codes.
func (r *Registry) PurgeExpired(ctx context.Context) (int64, error) {
	return r.repo.PurgeExpiredLinkingCodes(ctx, r.nowF())
}
