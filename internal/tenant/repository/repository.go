package repository

import (
	"context"

	"tg-otp-relay/backend/internal/tenant/domain"
)

// Repository defines persistence for tenants. The core only reads tenants;
// Upsert is used by provisioning (cmd/seed, otpctl).
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Upsert(ctx context.Context, t *domain.Tenant) error
}
