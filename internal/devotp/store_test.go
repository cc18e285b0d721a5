package devotp

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "T1", "+1", Capture{Code: "042613", ChatID: 42, ExpiresAt: time.Now().UTC().Add(5 * time.Minute)})

	c, ok := store.Get(ctx, "T1", "+1")
	if !ok {
		t.Fatal("Get should return capture after Put")
	}
	if c.Code != "042613" || c.ChatID != 42 {
		t.Errorf("capture = %+v", c)
	}
}

func TestMemoryStore_TenantScoped(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "T1", "+1", Capture{Code: "111111", ExpiresAt: time.Now().UTC().Add(time.Minute)})

	if _, ok := store.Get(ctx, "T2", "+1"); ok {
		t.Error("another tenant must not read T1's capture")
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Minute)
	store.Put(ctx, "T1", "+1", Capture{Code: "111111", ExpiresAt: exp})
	store.Put(ctx, "T1", "+1", Capture{Code: "222222", ExpiresAt: exp})

	c, ok := store.Get(ctx, "T1", "+1")
	if !ok || c.Code != "222222" {
		t.Errorf("Get = %+v, %v; want latest capture", c, ok)
	}
}

func TestMemoryStore_ExpiredIsRemoved(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return now }
	store.Put(ctx, "T1", "+1", Capture{Code: "123456", ExpiresAt: now})

	if _, ok := store.Get(ctx, "T1", "+1"); !ok {
		t.Fatal("capture is still readable at its expiry instant")
	}
	now = now.Add(time.Millisecond)
	if _, ok := store.Get(ctx, "T1", "+1"); ok {
		t.Fatal("Get should return false once expired")
	}
	store.mu.RLock()
	n := len(store.m)
	store.mu.RUnlock()
	if n != 0 {
		t.Errorf("expired entry not cleaned up, %d left", n)
	}
}

func TestMemoryStore_ExpiredCleanupKeepsNewerPut(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return base }
	store.Put(ctx, "T1", "+1", Capture{Code: "111111", ExpiresAt: base})

	// The first clock read happens after the lock is released; a Put slips in there.
	first := true
	store.nowF = func() time.Time {
		if first {
			first = false
			store.Put(ctx, "T1", "+1", Capture{Code: "222222", ExpiresAt: base.Add(5 * time.Minute)})
		}
		return base.Add(time.Second)
	}
	if _, ok := store.Get(ctx, "T1", "+1"); ok {
		t.Fatal("stale capture should not be returned")
	}
	c, ok := store.Get(ctx, "T1", "+1")
	if !ok {
		t.Fatal("newer capture was removed with the expired one")
	}
	if c.Code != "222222" {
		t.Errorf("Code = %q, want 222222", c.Code)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "T1", "+1", Capture{Code: "123456", ExpiresAt: time.Now().UTC().Add(time.Minute)})
	store.Delete(ctx, "T1", "+1")
	store.Delete(ctx, "T1", "+2")
	if _, ok := store.Get(ctx, "T1", "+1"); ok {
		t.Fatal("capture survived Delete")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		phone := "+" + strconv.Itoa(i)
		go func() {
			defer wg.Done()
			store.Put(ctx, "T1", phone, Capture{Code: "123456", ExpiresAt: exp})
		}()
		go func() {
			defer wg.Done()
			store.Get(ctx, "T1", phone)
		}()
	}
	wg.Wait()
}
