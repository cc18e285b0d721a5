package repository

import (
	"context"
	"time"

	"tg-otp-relay/backend/internal/otp/domain"
)

// Repository defines persistence for OTP records, keyed by (tenant, phone).
type Repository interface {
	// Upsert stores rec, overwriting any outstanding OTP for the pair.
	Upsert(ctx context.Context, rec *domain.Record) error
	// Get returns the record, or nil if none. Expired records are returned as-is.
	Get(ctx context.Context, tenantID, phone string) (*domain.Record, error)
	// DeleteExpired removes the record only if it has expired at now.
	DeleteExpired(ctx context.Context, tenantID, phone string, now time.Time) error
	// Consume deletes the record only if its hash equals codeHash and it is live at now.
	// Reports whether a record was deleted.
	Consume(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (bool, error)
	// PurgeExpired deletes every record expired at now and returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
