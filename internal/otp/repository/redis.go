package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-otp-relay/backend/internal/otp/domain"
)

const redisKeyPrefix = "otp:"

// RedisExpiryGrace keeps expired hashes around past expires_at so a late verify still
// reports OtpExpired instead of NoActiveOtp. Redis evicts them after the grace period.
const RedisExpiryGrace = time.Hour

// consumeScript deletes KEYS[1] when code_hash == ARGV[1] and expires_at (unix ms) >= ARGV[2].
var consumeScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'code_hash', 'expires_at')
if not h[1] or h[1] ~= ARGV[1] then
  return 0
end
if tonumber(h[2]) < tonumber(ARGV[2]) then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// deleteExpiredScript deletes KEYS[1] when expires_at (unix ms) < ARGV[1].
var deleteExpiredScript = redis.NewScript(`
local e = redis.call('HGET', KEYS[1], 'expires_at')
if e and tonumber(e) < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// RedisRepository stores OTP records as Redis hashes. Compare-and-delete runs as a Lua
// script so verification stays atomic across replicas.
type RedisRepository struct {
	rdb *redis.Client
}

// NewRedisRepository returns an OTP repository backed by rdb.
func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

// redisKey length-prefixes the tenant id so ids containing ':' cannot collide.
func redisKey(tenantID, phone string) string {
	return fmt.Sprintf("%s%d:%s:%s", redisKeyPrefix, len(tenantID), tenantID, phone)
}

func (r *RedisRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	k := redisKey(rec.TenantID, rec.PhoneNumber)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k,
			"tenant_id", rec.TenantID,
			"phone_number", rec.PhoneNumber,
			"code_hash", rec.CodeHash,
			"expires_at", rec.ExpiresAt.UnixMilli(),
			"created_at", rec.CreatedAt.UnixMilli(),
		)
		p.PExpireAt(ctx, k, rec.ExpiresAt.Add(RedisExpiryGrace))
		return nil
	})
	return err
}

func (r *RedisRepository) Get(ctx context.Context, tenantID, phone string) (*domain.Record, error) {
	m, err := r.rdb.HGetAll(ctx, redisKey(tenantID, phone)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	expiresMs, err := strconv.ParseInt(m["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp redis: bad expires_at: %w", err)
	}
	createdMs, _ := strconv.ParseInt(m["created_at"], 10, 64)
	return &domain.Record{
		TenantID:    tenantID,
		PhoneNumber: phone,
		CodeHash:    m["code_hash"],
		ExpiresAt:   time.UnixMilli(expiresMs).UTC(),
		CreatedAt:   time.UnixMilli(createdMs).UTC(),
	}, nil
}

func (r *RedisRepository) DeleteExpired(ctx context.Context, tenantID, phone string, now time.Time) error {
	return deleteExpiredScript.Run(ctx, r.rdb, []string{redisKey(tenantID, phone)}, now.UnixMilli()).Err()
}

func (r *RedisRepository) Consume(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (bool, error) {
	n, err := consumeScript.Run(ctx, r.rdb, []string{redisKey(tenantID, phone)}, codeHash, now.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PurgeExpired walks the keyspace with SCAN; Redis TTLs remove the rest after RedisExpiryGrace.
func (r *RedisRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := deleteExpiredScript.Run(ctx, r.rdb, []string{iter.Val()}, now.UnixMilli()).Int()
		if err != nil {
			return purged, err
		}
		purged += int64(n)
	}
	return purged, iter.Err()
}
