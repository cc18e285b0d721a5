package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrSecretMismatch is returned by Compare when a legacy digest does not match.
var ErrSecretMismatch = errors.New("security: secret does not match")

// LegacyDigest returns the SHA-256 hex digest of secret, the format tenants
// provisioned before bcrypt were stored with.
func LegacyDigest(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// IsLegacyDigest reports whether stored looks like a 64-character hex SHA-256 digest.
func IsLegacyDigest(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// LegacyDigestEqual performs constant-time comparison of the provided secret's digest
// with the stored digest. Returns true only if they match.
func LegacyDigestEqual(providedSecret, storedDigest string) bool {
	providedDigest := LegacyDigest(providedSecret)
	return subtle.ConstantTimeCompare([]byte(providedDigest), []byte(strings.ToLower(storedDigest))) == 1
}

// GenerateSecret returns a new random tenant secret (32 hex chars from a v4 UUID).
func GenerateSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
