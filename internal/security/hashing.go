package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// fallbackDummyHash is a valid cost-10 bcrypt hash used when a per-Hasher dummy
// cannot be generated.
const fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher hashes and verifies tenant secrets using bcrypt. Callers must not log or
// persist plaintext secrets.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     string
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for per-request tenant authentication.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret. Do not pass an empty secret.
// Returns the hash as a string suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies secret against the stored hash. Stored values in the legacy
// SHA-256 hex format are compared with LegacyDigestEqual; everything else goes
// through bcrypt. Returns nil on match, ErrSecretMismatch or a bcrypt error otherwise.
func (h *Hasher) Compare(hash string, secret []byte) error {
	if IsLegacyDigest(hash) {
		if LegacyDigestEqual(string(secret), hash) {
			return nil
		}
		return ErrSecretMismatch
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), secret)
}

// Burn performs a full-cost comparison against a throwaway hash so that a
// lookup miss costs about as much as a real mismatch.
func (h *Hasher) Burn(secret []byte) {
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash()), secret)
}

// dummyHash is generated once per Hasher at its own cost.
func (h *Hasher) dummyHash() string {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("tg-otp-relay-dummy"), h.Cost)
		if err != nil {
			h.dummy = fallbackDummyHash
			return
		}
		h.dummy = string(b)
	})
	return h.dummy
}
