package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/store"
)

// Sender is the outbound half of the chat transport. The engine never talks
// to a chat API directly; whoever wires the bot supplies one of these.
type Sender interface {
	Send(ctx context.Context, chatUserID, text string) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, chatUserID, text string) error

func (f SenderFunc) Send(ctx context.Context, chatUserID, text string) error {
	return f(ctx, chatUserID, text)
}

// RateLimitedSender caps outbound messages. Chat APIs throttle around 30
// messages a second; a reminder backlog after downtime must not trip that.
type RateLimitedSender struct {
	Next    Sender
	Limiter *rate.Limiter
}

func NewRateLimitedSender(next Sender, perSecond float64, burst int) *RateLimitedSender {
	return &RateLimitedSender{Next: next, Limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *RateLimitedSender) Send(ctx context.Context, chatUserID, text string) error {
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	return s.Next.Send(ctx, chatUserID, text)
}

// CheckReminders delivers every unsent due reminder and marks it sent.
// Delivery is at-least-once: if marking sent fails after a successful send,
// the next pass redelivers. One failed reminder never blocks the rest.
func CheckReminders(ctx context.Context, db *sql.DB, sender Sender, hub *events.Hub, now time.Time) (delivered int, err error) {
	due, err := store.DueReminders(ctx, db, now)
	if err != nil {
		return 0, err
	}

	for _, r := range due {
		text := fmt.Sprintf("⏰ *Reminder*\n\n📝 %s\n", r.Message)
		if r.LeadName != "" {
			text += fmt.Sprintf("\n👤 *Related Lead:* %s", r.LeadName)
		}

		if err := sender.Send(ctx, r.ChatUserID, text); err != nil {
			log.Printf("level=warn msg=\"reminder send failed\" reminder=%s chat_user=%s err=%v", r.ID, r.ChatUserID, err)
			continue
		}
		if err := store.MarkReminderSent(ctx, db, r.ID); err != nil {
			log.Printf("level=warn msg=\"reminder mark-sent failed\" reminder=%s err=%v", r.ID, err)
			continue
		}
		if hub != nil {
			hub.Publish(events.MakeEvent("", events.TypeReminderSent, 1, map[string]any{"id": r.ID}))
		}
		delivered++
	}
	return delivered, nil
}
