package repository

import (
	"context"
	"database/sql"
	"errors"

	"tg-otp-relay/backend/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the tenant for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx,
		`SELECT id, secret_hash, display_name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.SecretHash, &t.DisplayName, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Upsert creates the tenant or replaces its secret hash and display name.
func (r *PostgresRepository) Upsert(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, secret_hash, display_name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET secret_hash = EXCLUDED.secret_hash, display_name = EXCLUDED.display_name`,
		t.ID, t.SecretHash, t.DisplayName, t.CreatedAt,
	)
	return err
}
