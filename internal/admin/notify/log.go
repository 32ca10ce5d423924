package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

// LogDispatcher writes notices to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogDispatcher struct{}

func (LogDispatcher) SendInvitation(ctx context.Context, n InvitationNotice) error {
	slogx.FromContext(ctx).Info("invitation notice",
		slog.String("invitation_id", n.InvitationID),
		slog.String("email", n.Email),
		slog.String("role", n.Role),
		slog.String("sender", n.SenderName),
		slog.String("link", n.Link),
		slog.Time("expires_at", n.ExpiresAt),
	)
	return nil
}

func (LogDispatcher) SendWelcome(ctx context.Context, n WelcomeNotice) error {
	slogx.FromContext(ctx).Info("welcome notice",
		slog.String("user_id", n.UserID),
		slog.String("email", n.Email),
		slog.String("role", n.Role),
	)
	return nil
}
