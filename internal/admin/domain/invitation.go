package domain

import "time"

const (
	// DefaultValidity is how long a freshly issued or resent invitation stays usable.
	DefaultValidity = 7 * 24 * time.Hour

	// MaxAttempts is the number of token probes tolerated inside one
	// AttemptWindow. Anything above it marks the token as compromised.
	MaxAttempts = 15

	// AttemptsWarningThreshold is where probe counts start getting logged.
	AttemptsWarningThreshold = 10

	// AttemptWindow is the TTL of the probe counter.
	AttemptWindow = time.Hour

	// SystemSender is the sender identity used when an invitation has no
	// issuing user.
	SystemSender = "system"
)

// InvitationStatus is derived from timestamps, never stored.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationExpired  InvitationStatus = "expired"
	InvitationAccepted InvitationStatus = "accepted"
)

type Invitation struct {
	ID         string
	Email      string
	TokenHash  string // SHA-256 fingerprint; empty once revoked or accepted
	Role       string // Role name assigned on acceptance
	SentBy     string // Issuing user id, empty for SystemSender
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (i Invitation) IsAccepted() bool { return i.AcceptedAt != nil }

// IsExpired reports whether the validity window has elapsed on a
// not-yet-accepted invitation. Revoked invitations are expired.
func (i Invitation) IsExpired(now time.Time) bool {
	return !i.IsAccepted() && !now.Before(i.ExpiresAt)
}

// IsPending reports whether the timestamps alone still allow acceptance.
func (i Invitation) IsPending(now time.Time) bool {
	return !i.IsAccepted() && now.Before(i.ExpiresAt)
}

// IsValid combines the timestamps with the out-of-band compromise flag.
func (i Invitation) IsValid(now time.Time, compromised bool) bool {
	return i.IsPending(now) && !compromised
}

func (i Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.IsAccepted():
		return InvitationAccepted
	case i.IsExpired(now):
		return InvitationExpired
	default:
		return InvitationPending
	}
}

// SenderOrSystem returns the issuing user id or SystemSender.
func (i Invitation) SenderOrSystem() string {
	if i.SentBy == "" {
		return SystemSender
	}
	return i.SentBy
}

// Refresh swaps in a new token fingerprint and restarts the validity window.
func (i *Invitation) Refresh(tokenHash string, now time.Time, validity time.Duration) error {
	if i.IsAccepted() {
		return ErrTerminalState
	}
	i.TokenHash = tokenHash
	i.ExpiresAt = now.Add(validity)
	i.UpdatedAt = now
	return nil
}

// Revoke expires the invitation immediately and drops its token. The record
// itself is kept.
func (i *Invitation) Revoke(now time.Time) error {
	if i.IsAccepted() {
		return ErrTerminalState
	}
	i.TokenHash = ""
	i.ExpiresAt = now
	i.UpdatedAt = now
	return nil
}

// MarkAccepted moves the invitation into its terminal state.
func (i *Invitation) MarkAccepted(now time.Time) error {
	if i.IsAccepted() {
		return ErrTerminalState
	}
	accepted := now
	i.AcceptedAt = &accepted
	i.TokenHash = ""
	i.UpdatedAt = now
	return nil
}

// InvitationFilter narrows invitation listings. Zero values match everything.
type InvitationFilter struct {
	Status InvitationStatus
	Email  string
	Limit  int
	Now    time.Time
}
