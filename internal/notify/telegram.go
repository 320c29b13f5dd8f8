package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

// Sender is the part of *telebot.Bot the sink needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// NewBot builds a send-only bot; no updates are polled.
func NewBot(token string) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// lateAnnounce bounds how long after a prayer's instant a missed
// announcement is still sent.
const lateAnnounce = time.Minute

// Telegram announces each prayer once, when its time arrives. A prayer whose
// Due second was never observed is announced on the first later resolution.
type Telegram struct {
	sender Sender
	chat   telebot.Recipient

	mu      sync.Mutex
	lastAt  time.Time
	pending *prayer.Resolution
}

// NewTelegram returns a sink messaging chatID.
func NewTelegram(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chat: telebot.ChatID(chatID)}
}

// Notify sends "<Name> prayer time now" once per prayer instant.
func (t *Telegram) Notify(_ context.Context, r prayer.Resolution) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now, known := observedAt(r)
	if !known {
		return nil
	}

	if p := t.pending; p != nil && !now.Before(p.At) && !p.At.Equal(r.At) {
		t.pending = nil
		if now.Sub(p.At) <= lateAnnounce {
			if err := t.announce(*p); err != nil {
				t.pending = p
				return err
			}
		}
	}

	switch r.State {
	case prayer.Upcoming:
		next := r
		t.pending = &next
	case prayer.Due:
		t.pending = nil
		if err := t.announce(r); err != nil {
			due := r
			t.pending = &due
			return err
		}
	}
	return nil
}

// announce sends r unless its instant was already announced.
func (t *Telegram) announce(r prayer.Resolution) error {
	if r.At.Equal(t.lastAt) {
		return nil
	}
	text := fmt.Sprintf("%s prayer time now", r.Name)
	if _, err := t.sender.Send(t.chat, text, &telebot.SendOptions{}); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.lastAt = r.At
	return nil
}

// observedAt recovers the resolution's reference instant to the second.
func observedAt(r prayer.Resolution) (time.Time, bool) {
	switch r.State {
	case prayer.Upcoming:
		return r.At.Add(-r.Remaining), true
	case prayer.Due:
		return r.At, true
	default:
		return time.Time{}, false
	}
}
