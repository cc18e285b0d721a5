package repository

import (
	"context"
	"errors"
	"time"

	"tg-otp-relay/backend/internal/link/domain"
)

// ErrCodeTaken is returned by UpsertLinkingCode when the code value is already held by another
// (tenant, phone) pair. Callers generate a new code and retry.
var ErrCodeTaken = errors.New("link repository: linking code already in use")

// Repository defines persistence for linking codes and end-user links.
type Repository interface {
	// UpsertLinkingCode stores c, replacing any outstanding code for (c.TenantID, c.PhoneNumber).
	UpsertLinkingCode(ctx context.Context, c *domain.LinkingCode) error
	// GetLinkingCode returns the code record, or nil if not found. Expired records are returned as-is.
	GetLinkingCode(ctx context.Context, code string) (*domain.LinkingCode, error)
	// DeleteExpiredLinkingCode removes code only if it has expired at now.
	DeleteExpiredLinkingCode(ctx context.Context, code string, now time.Time) error
	// ConsumeLinkingCode atomically deletes code if still live at now and upserts the end-user link
	// for its (tenant, phone) with id. Returns nil when there was nothing live to claim.
	ConsumeLinkingCode(ctx context.Context, code string, now time.Time, id domain.ChatIdentity) (*domain.EndUserLink, error)
	// GetLink returns the link for (tenantID, phone), or nil if not linked.
	GetLink(ctx context.Context, tenantID, phone string) (*domain.EndUserLink, error)
	// UpsertLink creates or overwrites the link for (l.TenantID, l.PhoneNumber).
	UpsertLink(ctx context.Context, l *domain.EndUserLink) error
	// PurgeExpiredLinkingCodes deletes every code expired at now and returns how many were removed.
	PurgeExpiredLinkingCodes(ctx context.Context, now time.Time) (int64, error)
}
