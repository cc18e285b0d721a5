package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"tg-otp-relay/backend/internal/telemetry/domain"
)

// Event types emitted by the HTTP API and the bot.
const (
	EventLinkCodeIssued    = "link_code_issued"
	EventLinkRedeemed      = "link_redeemed"
	EventLinkRedeemFailed  = "link_redeem_failed"
	EventOTPIssued         = "otp_issued"
	EventOTPVerified       = "otp_verified"
	EventOTPVerifyFailed   = "otp_verify_failed"
	EventOTPDeliveryFailed = "otp_delivery_failed"
	EventAuthFailed        = "auth_failed"
	EventHTTPRequest       = "http_request"
)

// Sources.
const (
	SourceHTTP = "http_api"
	SourceBot  = "telegram_bot"
)

// PhoneDigest returns a short SHA-256 digest of phone so events can be correlated without storing the number.
func PhoneDigest(phone string) string {
	if phone == "" {
		return ""
	}
	h := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(h[:8])
}

// NewEvent builds an event stamped with the current time. meta may be nil.
func NewEvent(eventType, source, tenantID, phone, outcome string, meta map[string]any) *domain.Event {
	ev := &domain.Event{
		TenantID:    tenantID,
		EventType:   eventType,
		Source:      source,
		Outcome:     outcome,
		PhoneDigest: PhoneDigest(phone),
		CreatedAt:   time.Now().UTC(),
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			ev.Metadata = b
		}
	}
	return ev
}
