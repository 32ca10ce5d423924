// Package events is a small in-process publish/subscribe bus. Handlers run
// synchronously after the business transaction has committed; a failing
// handler is logged and never undoes the work that produced the event.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.EventName()]...)
	b.mu.RUnlock()

	log := slogx.FromContext(ctx)
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			log.Error("event handler failed",
				slog.String("event", e.EventName()),
				slog.Any("error", err),
			)
		}
	}
}

const UserRegisteredEvent = "user.registered"

// UserRegistered is published once an invitation has been accepted and the
// new account committed.
type UserRegistered struct {
	UserID       string
	Name         string
	Email        string
	Role         string
	InvitationID string
	At           time.Time
}

func (UserRegistered) EventName() string { return UserRegisteredEvent }
