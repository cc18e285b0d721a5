package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultTimeout = 15 * time.Second

// SendTimeout bounds a single sendMessage call. It stays below the tenant request timeout.
const SendTimeout = 10 * time.Second

// TelegramSender delivers messages through the Telegram Bot API with HTML parse mode.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender wraps an authorized bot. Sends go through their own HTTP client
// limited to SendTimeout; the bot's long-poll client is left untouched.
func NewTelegramSender(bot *tgbotapi.BotAPI) *TelegramSender {
	sendBot := *bot
	sendBot.Client = &http.Client{Timeout: SendTimeout}
	return &TelegramSender{bot: &sendBot}
}

// NewBot authorizes token against apiEndpoint (tgbotapi.APIEndpoint when empty) using an
// HTTP client with a sane timeout. longPoll is added to the timeout so getUpdates can block.
func NewBot(token, apiEndpoint string, longPoll time.Duration) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token not configured")
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	client := &http.Client{Timeout: defaultTimeout + longPoll}
	return tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
}

// Deliver sends text to chatID. Any failure is wrapped in ErrDeliveryUnavailable.
// The Bot API client takes no context, so Deliver returns when ctx is done and the
// abandoned send is cut off by SendTimeout.
func (s *TelegramSender) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryUnavailable, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDeliveryUnavailable, ctx.Err())
	}
}
