package domain

import (
	"encoding/json"
	"time"
)

// Event is a lifecycle event of the relay (link issued, OTP verified, ...).
// It never carries an OTP, a linking code or a tenant secret; phone numbers appear only as PhoneDigest.
type Event struct {
	TenantID    string          `json:"tenantId,omitempty"`
	EventType   string          `json:"eventType"`
	Source      string          `json:"source"`
	Outcome     string          `json:"outcome,omitempty"`
	PhoneDigest string          `json:"phoneDigest,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
