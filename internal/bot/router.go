// Package bot is the Telegram front-end: it turns inbound chat messages into linking-code
// redemptions and answers the end-user.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"tg-otp-relay/backend/internal/codes"
	"tg-otp-relay/backend/internal/delivery"
	linkdomain "tg-otp-relay/backend/internal/link/domain"
	linksvc "tg-otp-relay/backend/internal/link/service"
	"tg-otp-relay/backend/internal/telemetry"
)

// Reply texts. HTML parse mode.
const (
	WelcomeText = "Welcome to the Multi-Tenant OTP Service Bot! " +
		"To link your account, please get a linking code from the website and send it to me."
	MalformedText = "I'm sorry, I didn't recognize that. Please send a valid linking code (e.g., LNK-A1B2C3) or use the /start command."
	InternalText  = "An error occurred while trying to link your account. Please try again later."
)

// Redeemer consumes linking codes.
type Redeemer interface {
	Redeem(ctx context.Context, raw string, id linkdomain.ChatIdentity) (*linksvc.Redeemed, error)
}

// Message is one inbound chat message.
type Message struct {
	ChatID int64
	UserID int64
	Text   string
	// Command is the bot command without the slash (e.g. "start"), or "" for plain text.
	Command string
}

// Router decides the reply for each inbound message.
type Router struct {
	links   Redeemer
	emitter telemetry.EventEmitter
}

// NewRouter returns a Router. emitter may be nil.
func NewRouter(links Redeemer, emitter telemetry.EventEmitter) *Router {
	return &Router{links: links, emitter: emitter}
}

// Handle returns the reply for m, or "" when the message should be ignored.
func (r *Router) Handle(ctx context.Context, m Message) string {
	switch m.Command {
	case "":
	case "start", "help":
		return WelcomeText
	default:
		return MalformedText
	}
	if strings.TrimSpace(m.Text) == "" {
		return ""
	}

	res, err := r.links.Redeem(ctx, m.Text, linkdomain.ChatIdentity{ChatID: m.ChatID, TelegramUserID: m.UserID})
	if err != nil {
		return r.failure(m, err)
	}
	telemetry.EmitAsync(r.emitter, telemetry.NewEvent(telemetry.EventLinkRedeemed, telemetry.SourceBot,
		res.TenantID, res.PhoneNumber, "success", nil))
	return delivery.LinkedMessage(res.PhoneNumber, res.ServiceName)
}

func (r *Router) failure(m Message, err error) string {
	code := html.EscapeString(codes.NormalizeLinkingCode(m.Text))
	var reason, reply string
	switch {
	case errors.Is(err, linksvc.ErrMalformedCode):
		reason, reply = "malformed", MalformedText
	case errors.Is(err, linksvc.ErrCodeNotFound):
		reason = "not_found"
		reply = fmt.Sprintf("Linking code <b>%s</b> is invalid or has already been used. Please request a new one from the website.", code)
	case errors.Is(err, linksvc.ErrCodeExpired):
		reason = "expired"
		reply = fmt.Sprintf("Linking code <b>%s</b> has expired. Please request a new one from the website.", code)
	default:
		log.Printf("bot: redeem linking code for chat %d: %v", m.ChatID, err)
		reason, reply = "internal", InternalText
	}
	telemetry.EmitAsync(r.emitter, telemetry.NewEvent(telemetry.EventLinkRedeemFailed, telemetry.SourceBot,
		"", "", "failure", map[string]any{"reason": reason}))
	return reply
}
