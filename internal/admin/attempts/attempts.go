// Package attempts counts how often an invitation token has been presented.
// Counts live in an expiring key-value store and never touch the durable
// invitation record.
package attempts

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

const keyPrefix = "invitation_attempts:"

// Counter is an expiring integer counter. Every Incr restarts the key's TTL.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Tracker applies the invitation probe policy on top of a Counter.
type Tracker struct {
	Counter Counter
	Max     int64 // Counts above Max mark the token as compromised
	Warn    int64 // Counts above Warn are logged
}

func NewTracker(c Counter) *Tracker {
	return &Tracker{
		Counter: c,
		Max:     domain.MaxAttempts,
		Warn:    domain.AttemptsWarningThreshold,
	}
}

func key(invitationID string) string { return keyPrefix + invitationID }

// Increment records one probe and returns the running count.
func (t *Tracker) Increment(ctx context.Context, invitationID string) (int64, error) {
	n, err := t.Counter.Incr(ctx, key(invitationID))
	if err != nil {
		return 0, err
	}

	if n > t.Warn {
		log := slogx.FromContext(ctx)
		level := slog.LevelWarn
		if n > t.Max {
			level = slog.LevelError
		}
		log.Log(ctx, level, "invitation token probed repeatedly",
			slog.String("invitation_id", invitationID),
			slog.Int64("attempts", n),
			slog.Int64("max_attempts", t.Max),
		)
	}
	return n, nil
}

func (t *Tracker) Count(ctx context.Context, invitationID string) (int64, error) {
	return t.Counter.Get(ctx, key(invitationID))
}

// IsCompromised reports whether the token was probed more than Max times
// within the counter's TTL.
func (t *Tracker) IsCompromised(ctx context.Context, invitationID string) (bool, error) {
	n, err := t.Count(ctx, invitationID)
	if err != nil {
		return false, err
	}
	return n > t.Max, nil
}

func (t *Tracker) Reset(ctx context.Context, invitationID string) error {
	return t.Counter.Delete(ctx, key(invitationID))
}
