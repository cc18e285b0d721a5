package bot

import (
	"context"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-otp-relay/backend/internal/delivery"
)

// maxInFlight caps concurrently handled updates.
const maxInFlight = 16

// replyTimeout bounds redemption plus the reply send for one update.
const replyTimeout = 20 * time.Second

// UpdateSource is the long-polling side of the Bot API (*tgbotapi.BotAPI).
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller receives updates by long polling and answers each through the reply gateway.
type Poller struct {
	source      UpdateSource
	router      *Router
	replies     delivery.Gateway
	pollTimeout int
}

// NewPoller returns a Poller. pollTimeout is the getUpdates timeout in seconds.
func NewPoller(source UpdateSource, router *Router, replies delivery.Gateway, pollTimeout int) *Poller {
	return &Poller{source: source, router: router, replies: replies, pollTimeout: pollTimeout}
}

// Run handles updates until ctx is done or the update channel closes, then waits for
// in-flight handlers.
func (p *Poller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.pollTimeout
	updates := p.source.GetUpdatesChan(u)

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInFlight)
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			m, ok := toMessage(upd)
			if !ok {
				continue
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				p.source.StopReceivingUpdates()
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				p.handle(m)
			}()
		}
	}
}

func (p *Poller) handle(m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	reply := p.router.Handle(ctx, m)
	if reply == "" {
		return
	}
	if err := p.replies.Deliver(ctx, m.ChatID, reply); err != nil {
		log.Printf("bot: reply to chat %d: %v", m.ChatID, err)
	}
}

// toMessage extracts a text message from upd. Edits, callbacks and non-text messages are skipped.
func toMessage(upd tgbotapi.Update) (Message, bool) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return Message{}, false
	}
	m := Message{ChatID: msg.Chat.ID, Text: msg.Text}
	if msg.From != nil {
		m.UserID = msg.From.ID
	}
	if msg.IsCommand() {
		m.Command = msg.Command()
	}
	return m, true
}
