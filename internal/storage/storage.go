// Package storage selects and opens the repositories for the configured backends:
// Postgres when DATABASE_URL is set (in-memory otherwise), and Redis for OTP records
// when REDIS_ADDR is set.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	auditrepo "tg-otp-relay/backend/internal/audit/repository"
	"tg-otp-relay/backend/internal/config"
	"tg-otp-relay/backend/internal/db"
	linkrepo "tg-otp-relay/backend/internal/link/repository"
	otprepo "tg-otp-relay/backend/internal/otp/repository"
	tenantrepo "tg-otp-relay/backend/internal/tenant/repository"
)

// Stores holds one repository per collection plus the underlying handles.
type Stores struct {
	Tenants tenantrepo.Repository
	Links   linkrepo.Repository
	OTPs    otprepo.Repository
	Audit   auditrepo.Repository

	// DB is nil for the in-memory backend.
	DB *sql.DB
	// Redis is nil unless OTP records live in Redis.
	Redis *redis.Client
}

// Open connects the configured backends. Callers must call Close.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	if cfg.DatabaseURL == "" {
		s.Tenants = tenantrepo.NewMemoryRepository()
		s.Links = linkrepo.NewMemoryRepository()
		s.OTPs = otprepo.NewMemoryRepository()
		s.Audit = auditrepo.NewMemoryRepository()
	} else {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		s.DB = conn
		s.Tenants = tenantrepo.NewPostgresRepository(conn)
		s.Links = linkrepo.NewPostgresRepository(conn)
		s.OTPs = otprepo.NewPostgresRepository(conn)
		s.Audit = auditrepo.NewPostgresRepository(conn)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			_ = s.Close()
			return nil, fmt.Errorf("storage: ping redis: %w", err)
		}
		s.Redis = rdb
		s.OTPs = otprepo.NewRedisRepository(rdb)
	}
	return s, nil
}

// Close releases the database and Redis handles.
func (s *Stores) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

// RedisPing returns a ping function for readiness, or nil when Redis is not in use.
func (s *Stores) RedisPing() func(context.Context) error {
	if s.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
}
