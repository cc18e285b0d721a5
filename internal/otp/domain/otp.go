package domain

import "time"

// Record is the single outstanding OTP for (TenantID, PhoneNumber) (stored in otp_records table).
// Only the SHA-256 digest of the code is kept.
type Record struct {
	TenantID    string
	PhoneNumber string
	CodeHash    string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the OTP can no longer be verified at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
