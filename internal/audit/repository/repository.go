package repository

import (
	"context"

	"tg-otp-relay/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByTenant returns the newest entries first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditLog, error)
}
