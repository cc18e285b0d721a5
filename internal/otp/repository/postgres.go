package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tg-otp-relay/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an OTP repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores rec, overwriting any outstanding OTP for the pair.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_records (tenant_id, phone_number, code_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, phone_number) DO UPDATE
		 SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		rec.TenantID, rec.PhoneNumber, rec.CodeHash, rec.ExpiresAt, rec.CreatedAt,
	)
	return err
}

// Get returns the record for the pair, or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, tenantID, phone string) (*domain.Record, error) {
	var rec domain.Record
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, phone_number, code_hash, expires_at, created_at
		 FROM otp_records WHERE tenant_id = $1 AND phone_number = $2`, tenantID, phone,
	).Scan(&rec.TenantID, &rec.PhoneNumber, &rec.CodeHash, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteExpired removes the record only if it has expired at now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, tenantID, phone string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_records WHERE tenant_id = $1 AND phone_number = $2 AND expires_at < $3`,
		tenantID, phone, now)
	return err
}

// Consume is a compare-and-delete on (pair, code_hash); a concurrent replay sees zero rows.
func (r *PostgresRepository) Consume(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_records
		 WHERE tenant_id = $1 AND phone_number = $2 AND code_hash = $3 AND expires_at >= $4`,
		tenantID, phone, codeHash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PurgeExpired deletes every record expired at now.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
