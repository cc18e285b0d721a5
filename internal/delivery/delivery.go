// Package delivery pushes rendered messages to linked Telegram chats.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"
)

// ErrDeliveryUnavailable wraps every failure to hand a message to the chat platform.
// It never implies that the OTP was not issued.
var ErrDeliveryUnavailable = errors.New("delivery unavailable")

// Gateway pushes text to a chat. Outcome is success or failure only.
type Gateway interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, chatID int64, text string) error

func (f GatewayFunc) Deliver(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

// OTPMessage renders the OTP message in Telegram HTML. serviceName is escaped.
func OTPMessage(serviceName, code string, ttl time.Duration) string {
	return fmt.Sprintf("Your One-Time Password (OTP) for <b>%s</b> is: <b>%s</b>. This code is valid for %s.",
		html.EscapeString(serviceName), html.EscapeString(code), humanDuration(ttl))
}

// LinkedMessage renders the confirmation sent after a successful linking code redemption.
func LinkedMessage(phone, serviceName string) string {
	return fmt.Sprintf("Success! Your phone number <b>%s</b> for <b>%s</b> is now linked. You will receive your one-time passwords here.",
		html.EscapeString(phone), html.EscapeString(serviceName))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	case d >= time.Second && d%time.Second == 0:
		if s := int(d / time.Second); s != 1 {
			return fmt.Sprintf("%d seconds", s)
		}
		return "1 second"
	default:
		return d.String()
	}
}
