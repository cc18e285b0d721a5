package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	secret := []byte("super_secret_key_123")
	hash, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if IsLegacyDigest(hash) {
		t.Fatal("bcrypt hash should not look like a legacy digest")
	}
	if err := h.Compare(hash, secret); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongSecret(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("s1"))
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong secret should fail")
	}
}

func TestHasher_CompareLegacyDigest(t *testing.T) {
	h := NewHasher(4)
	stored := LegacyDigest("super_secret_key_123")

	if err := h.Compare(stored, []byte("super_secret_key_123")); err != nil {
		t.Fatalf("Compare legacy: %v", err)
	}
	if err := h.Compare(stored, []byte("nope")); !errors.Is(err, ErrSecretMismatch) {
		t.Fatalf("Compare legacy wrong secret: err = %v, want ErrSecretMismatch", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	h1 := NewHasher(2)
	if h1.Cost != 4 {
		t.Errorf("cost below MinCost should clamp to 4, got %d", h1.Cost)
	}
}

func TestHasher_BurnDoesNotPanic(t *testing.T) {
	h := NewHasher(4)
	h.Burn([]byte("anything"))
	h.Burn(nil)
}

func TestHasher_DummyHashPerHasherCost(t *testing.T) {
	for _, cost := range []int{4, 5} {
		h := NewHasher(cost)
		got, err := bcrypt.Cost([]byte(h.dummyHash()))
		if err != nil {
			t.Fatalf("cost %d: bcrypt.Cost: %v", cost, err)
		}
		if got != cost {
			t.Errorf("dummy hash cost = %d, want %d", got, cost)
		}
	}
}

func TestHasher_DummyHashFallback(t *testing.T) {
	h := &Hasher{Cost: bcrypt.MaxCost + 1}
	if got := h.dummyHash(); got != fallbackDummyHash {
		t.Fatalf("dummyHash = %q, want fallback", got)
	}
	if _, err := bcrypt.Cost([]byte(fallbackDummyHash)); err != nil {
		t.Fatalf("fallback hash is not a bcrypt hash: %v", err)
	}
}
