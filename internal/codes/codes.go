// Package codes generates and checks linking codes and OTP codes.
package codes

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	// LinkingCodePrefix starts every linking code.
	LinkingCodePrefix = "LNK-"
	// LinkingCodeLength is the full length of a linking code including the prefix.
	LinkingCodeLength = len(LinkingCodePrefix) + 6

	otpDigits = 6
)

var otpSpace = big.NewInt(1000000)

// GenerateLinkingCode returns a code such as "LNK-3FA09C": the prefix followed by
// 6 upper-case hex characters from crypto/rand.
func GenerateLinkingCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return LinkingCodePrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeLinkingCode trims surrounding whitespace and upper-cases raw chat input.
func NormalizeLinkingCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// LooksLikeLinkingCode reports whether a normalized code has the linking code shape
// (prefix and total length). It does not check the alphabet.
func LooksLikeLinkingCode(code string) bool {
	return len(code) == LinkingCodeLength && strings.HasPrefix(code, LinkingCodePrefix)
}

// GenerateOTP returns a 6-digit numeric OTP string, zero padded (e.g. "042613").
// Digits are drawn uniformly from crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// HashOTP returns a SHA-256 hash of the OTP string, hex-encoded.
func HashOTP(otp string) string {
	h := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(h[:])
}

// OTPEqual performs constant-time comparison of the provided OTP's hash with the stored hash.
func OTPEqual(providedOTP, storedHash string) bool {
	providedHash := HashOTP(providedOTP)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
