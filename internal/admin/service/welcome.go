package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/bakeboard/internal/admin/events"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
)

// WelcomeListener sends a welcome notice for every registered user.
func WelcomeListener(d notify.Dispatcher) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		reg, ok := e.(events.UserRegistered)
		if !ok {
			return fmt.Errorf("welcome listener: unexpected event %q", e.EventName())
		}
		return d.SendWelcome(ctx, notify.WelcomeNotice{
			UserID: reg.UserID,
			Email:  reg.Email,
			Name:   reg.Name,
			Role:   reg.Role,
		})
	}
}
