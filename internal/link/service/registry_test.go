package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-otp-relay/backend/internal/link/domain"
	"tg-otp-relay/backend/internal/link/repository"
	tenantdomain "tg-otp-relay/backend/internal/tenant/domain"
	tenantrepo "tg-otp-relay/backend/internal/tenant/repository"
)

const phone = "+15551234567"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequence returns a generator that yields codes in order, then fails.
func sequence(codes ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("sequence exhausted")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func newRegistry(t *testing.T) (*Registry, *repository.MemoryRepository, *clock) {
	t.Helper()
	tenants := tenantrepo.NewMemoryRepository()
	require.NoError(t, tenants.Upsert(context.Background(), &tenantdomain.Tenant{ID: "T1", DisplayName: "Tenant One"}))
	require.NoError(t, tenants.Upsert(context.Background(), &tenantdomain.Tenant{ID: "T2", DisplayName: "Tenant Two"}))
	repo := repository.NewMemoryRepository()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(repo, tenants, 0)
	r.nowF = clk.Now
	return r, repo, clk
}

func TestRegistry_HappyPath(t *testing.T) {
	ctx := context.Background()
	r, _, clk := newRegistry(t)
	r.genF = sequence("LNK-ABC123")

	issued, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	assert.Equal(t, "LNK-ABC123", issued.Code)
	assert.Equal(t, clk.Now().Add(5*time.Minute), issued.ExpiresAt)

	got, err := r.Redeem(ctx, "  lnk-abc123 ", domain.ChatIdentity{ChatID: 42, TelegramUserID: 4242})
	require.NoError(t, err)
	assert.Equal(t, "T1", got.TenantID)
	assert.Equal(t, phone, got.PhoneNumber)
	assert.Equal(t, "Tenant One", got.ServiceName)

	link, err := r.Link(ctx, "T1", phone)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.EqualValues(t, 42, link.ChatID)
	assert.EqualValues(t, 4242, link.TelegramUserID)
}

func TestRegistry_ReissueInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	r.genF = sequence("LNK-000001", "LNK-000002")

	first, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	second, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, second.Code)

	_, err = r.Redeem(ctx, first.Code, domain.ChatIdentity{ChatID: 42})
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = r.Redeem(ctx, second.Code, domain.ChatIdentity{ChatID: 42})
	assert.NoError(t, err)
}

func TestRegistry_RedeemIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	issued, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)

	var wins, notFound int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Redeem(ctx, issued.Code, domain.ChatIdentity{ChatID: int64(100 + i)})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, ErrCodeNotFound):
				atomic.AddInt32(&notFound, 1)
			default:
				t.Errorf("Redeem: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, 19, notFound)

	_, err = r.Redeem(ctx, issued.Code, domain.ChatIdentity{ChatID: 1})
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRegistry_ExpiredCode(t *testing.T) {
	ctx := context.Background()
	r, repo, clk := newRegistry(t)
	issued, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	_, err = r.Redeem(ctx, issued.Code, domain.ChatIdentity{ChatID: 42})
	require.NoError(t, err, "a code is still valid exactly at its expiry instant")

	issued, err = r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	clk.Advance(5*time.Minute + time.Nanosecond)
	_, err = r.Redeem(ctx, issued.Code, domain.ChatIdentity{ChatID: 43})
	assert.ErrorIs(t, err, ErrCodeExpired)

	left, err := repo.GetLinkingCode(ctx, issued.Code)
	require.NoError(t, err)
	assert.Nil(t, left, "expired code is deleted when detected")

	_, err = r.Redeem(ctx, issued.Code, domain.ChatIdentity{ChatID: 43})
	assert.ErrorIs(t, err, ErrCodeNotFound)

	link, err := r.Link(ctx, "T1", phone)
	require.NoError(t, err)
	assert.EqualValues(t, 42, link.ChatID, "expired redemption must not touch the link")
}

func TestRegistry_MalformedCode(t *testing.T) {
	r, _, _ := newRegistry(t)
	for _, raw := range []string{"", "hello", "LNK-12345", "LNK-1234567", "ABC-123456", "/start"} {
		_, err := r.Redeem(context.Background(), raw, domain.ChatIdentity{ChatID: 1})
		assert.ErrorIs(t, err, ErrMalformedCode, "raw=%q", raw)
	}
}

func TestRegistry_CrossTenantIsolation(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	r.genF = sequence("LNK-AAAAAA", "LNK-BBBBBB")

	c1, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	_, err = r.Redeem(ctx, c1.Code, domain.ChatIdentity{ChatID: 42})
	require.NoError(t, err)

	c2, err := r.IssueCode(ctx, "T2", phone)
	require.NoError(t, err)
	assert.NotEqual(t, c1.Code, c2.Code)
	got, err := r.Redeem(ctx, c2.Code, domain.ChatIdentity{ChatID: 77})
	require.NoError(t, err)
	assert.Equal(t, "T2", got.TenantID)
	assert.Equal(t, "Tenant Two", got.ServiceName)

	l1, err := r.Link(ctx, "T1", phone)
	require.NoError(t, err)
	assert.EqualValues(t, 42, l1.ChatID)
	l2, err := r.Link(ctx, "T2", phone)
	require.NoError(t, err)
	assert.EqualValues(t, 77, l2.ChatID)
}

func TestRegistry_RelinkOverwrites(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	for _, chat := range []int64{42, 43} {
		c, err := r.IssueCode(ctx, "T1", phone)
		require.NoError(t, err)
		_, err = r.Redeem(ctx, c.Code, domain.ChatIdentity{ChatID: chat})
		require.NoError(t, err)
	}
	l, err := r.Link(ctx, "T1", phone)
	require.NoError(t, err)
	assert.EqualValues(t, 43, l.ChatID)
}

func TestRegistry_IssueRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	r.genF = sequence("LNK-AAAAAA", "LNK-AAAAAA", "LNK-CCCCCC")

	_, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)
	got, err := r.IssueCode(ctx, "T2", phone)
	require.NoError(t, err)
	assert.Equal(t, "LNK-CCCCCC", got.Code)
}

func TestRegistry_IssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	r.genF = sequence("LNK-AAAAAA")
	_, err := r.IssueCode(ctx, "T1", phone)
	require.NoError(t, err)

	r.genF = func() (string, error) { return "LNK-AAAAAA", nil }
	_, err = r.IssueCode(ctx, "T2", phone)
	assert.ErrorIs(t, err, repository.ErrCodeTaken)
}

func TestRegistry_UnknownServiceName(t *testing.T) {
	ctx := context.Background()
	tenants := tenantrepo.NewMemoryRepository()
	r := NewRegistry(repository.NewMemoryRepository(), tenants, time.Minute)
	c, err := r.IssueCode(ctx, "GONE", phone)
	require.NoError(t, err)
	got, err := r.Redeem(ctx, c.Code, domain.ChatIdentity{ChatID: 1})
	require.NoError(t, err)
	assert.Equal(t, UnknownServiceName, got.ServiceName)
}

func TestRegistry_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	r, _, clk := newRegistry(t)
	_, err := r.IssueCode(ctx, "T1", "+1")
	require.NoError(t, err)
	clk.Advance(10 * time.Minute)
	_, err = r.IssueCode(ctx, "T1", "+2")
	require.NoError(t, err)

	n, err := r.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
