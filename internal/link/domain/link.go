package domain

import "time"

// LinkingCode is a short-lived code that binds (TenantID, PhoneNumber) to a chat once the
// end-user sends it to the bot (stored in linking_codes table, keyed by Code).
type LinkingCode struct {
	Code        string
	TenantID    string
	PhoneNumber string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the code is no longer redeemable at now.
func (c *LinkingCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// EndUserLink maps (TenantID, PhoneNumber) to the Telegram chat the end-user linked from
// (stored in end_user_links table). Re-linking overwrites ChatID.
type EndUserLink struct {
	TenantID       string
	PhoneNumber    string
	ChatID         int64
	TelegramUserID int64
	LinkedAt       time.Time
}

// ChatIdentity identifies who redeemed a linking code.
type ChatIdentity struct {
	ChatID         int64
	TelegramUserID int64
}
