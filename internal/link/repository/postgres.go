package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"tg-otp-relay/backend/internal/link/domain"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a link repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertLinkingCode replaces the outstanding code for the pair. A primary key violation means the
// code value belongs to another pair and is reported as ErrCodeTaken.
func (r *PostgresRepository) UpsertLinkingCode(ctx context.Context, c *domain.LinkingCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO linking_codes (code, tenant_id, phone_number, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, phone_number) DO UPDATE
		 SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		c.Code, c.TenantID, c.PhoneNumber, c.ExpiresAt, c.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrCodeTaken
	}
	return err
}

// GetLinkingCode returns the code record, or nil if not found.
func (r *PostgresRepository) GetLinkingCode(ctx context.Context, code string) (*domain.LinkingCode, error) {
	var c domain.LinkingCode
	err := r.db.QueryRowContext(ctx,
		`SELECT code, tenant_id, phone_number, expires_at, created_at FROM linking_codes WHERE code = $1`, code,
	).Scan(&c.Code, &c.TenantID, &c.PhoneNumber, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// DeleteExpiredLinkingCode removes code only if it has expired at now.
func (r *PostgresRepository) DeleteExpiredLinkingCode(ctx context.Context, code string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM linking_codes WHERE code = $1 AND expires_at < $2`, code, now)
	return err
}

// ConsumeLinkingCode claims the code and upserts the link in one statement, so two concurrent
// redemptions of the same code cannot both observe the row.
func (r *PostgresRepository) ConsumeLinkingCode(ctx context.Context, code string, now time.Time, id domain.ChatIdentity) (*domain.EndUserLink, error) {
	var l domain.EndUserLink
	err := r.db.QueryRowContext(ctx,
		`WITH claimed AS (
			DELETE FROM linking_codes WHERE code = $1 AND expires_at >= $2
			RETURNING tenant_id, phone_number
		)
		INSERT INTO end_user_links (tenant_id, phone_number, chat_id, telegram_user_id, linked_at)
		SELECT tenant_id, phone_number, $3, $4, $2 FROM claimed
		ON CONFLICT (tenant_id, phone_number) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, telegram_user_id = EXCLUDED.telegram_user_id, linked_at = EXCLUDED.linked_at
		RETURNING tenant_id, phone_number, chat_id, telegram_user_id, linked_at`,
		code, now, id.ChatID, id.TelegramUserID,
	).Scan(&l.TenantID, &l.PhoneNumber, &l.ChatID, &l.TelegramUserID, &l.LinkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// GetLink returns the link for (tenantID, phone), or nil if not linked.
func (r *PostgresRepository) GetLink(ctx context.Context, tenantID, phone string) (*domain.EndUserLink, error) {
	var l domain.EndUserLink
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, phone_number, chat_id, telegram_user_id, linked_at
		 FROM end_user_links WHERE tenant_id = $1 AND phone_number = $2`, tenantID, phone,
	).Scan(&l.TenantID, &l.PhoneNumber, &l.ChatID, &l.TelegramUserID, &l.LinkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// UpsertLink creates or overwrites the link for the pair.
func (r *PostgresRepository) UpsertLink(ctx context.Context, l *domain.EndUserLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO end_user_links (tenant_id, phone_number, chat_id, telegram_user_id, linked_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, phone_number) DO UPDATE
		 SET chat_id = EXCLUDED.chat_id, telegram_user_id = EXCLUDED.telegram_user_id, linked_at = EXCLUDED.linked_at`,
		l.TenantID, l.PhoneNumber, l.ChatID, l.TelegramUserID, l.LinkedAt,
	)
	return err
}

// PurgeExpiredLinkingCodes deletes every code expired at now.
func (r *PostgresRepository) PurgeExpiredLinkingCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM linking_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
