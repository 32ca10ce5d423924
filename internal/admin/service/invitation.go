package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/attempts"
	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/events"
	"github.com/aussiebroadwan/bakeboard/internal/admin/metrics"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/aussiebroadwan/bakeboard/pkg/cryptox"
	"github.com/aussiebroadwan/bakeboard/pkg/idx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

// MaxValidDays caps the validity window a caller may ask for.
const MaxValidDays = 90

const systemSenderName = "System"

// InvitationService runs the invitation lifecycle: issue, resend, revoke,
// token inspection and acceptance.
type InvitationService struct {
	Store    store.Store
	Attempts *attempts.Tracker
	Notifier notify.Dispatcher
	Events   events.Publisher

	Validity    time.Duration    // Default validity window (default: domain.DefaultValidity)
	BaseURL     string           // Public base of registration links
	PhoneRegion string           // Region for phone numbers without a country code
	Now         func() time.Time // Clock (default: time.Now)
}

// IssueParams describes a new invitation. SentBy is the issuing user id and
// may be empty for system-issued invitations. ValidDays of 0 selects the
// service default.
type IssueParams struct {
	Email      string
	Role       string
	SentBy     string
	SenderName string
	ValidDays  int
}

// InvitationView is an invitation together with its derived state.
type InvitationView struct {
	domain.Invitation
	Status      domain.InvitationStatus
	Compromised bool
	Attempts    int64
}

func (s *InvitationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *InvitationService) validity(days int) (time.Duration, error) {
	switch {
	case days == 0 && s.Validity > 0:
		return s.Validity, nil
	case days == 0:
		return domain.DefaultValidity, nil
	case days < 0 || days > MaxValidDays:
		return 0, ErrInvalidValidity
	default:
		return time.Duration(days) * 24 * time.Hour, nil
	}
}

// Issue creates an invitation and returns it with the raw token. The token
// is not stored anywhere and cannot be recovered later.
func (s *InvitationService) Issue(ctx context.Context, p IssueParams) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx)

	email, err := NormalizeEmail(p.Email)
	if err != nil {
		log.Warn("invitation rejected: invalid email")
		return domain.Invitation{}, "", err
	}
	validity, err := s.validity(p.ValidDays)
	if err != nil {
		return domain.Invitation{}, "", err
	}

	now := s.now()
	var (
		inv   domain.Invitation
		token string
	)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Roles().GetRoleByName(ctx, p.Role); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("invitation rejected: unknown role", slog.String("role", p.Role))
				return ErrUnknownRole
			}
			return err
		}

		if _, err := tx.Users().GetUserByEmail(ctx, email); err == nil {
			log.Warn("invitation rejected: user exists")
			return ErrUserExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.Invitations().LockInvitationEmail(ctx, email); err != nil {
			return err
		}

		// A resend can revive an older row, so every pending one counts.
		pending, err := tx.Invitations().ListActiveInvitationsByEmail(ctx, email, now)
		if err != nil {
			return err
		}
		for _, active := range pending {
			compromised, err := s.isCompromised(ctx, active.ID)
			if err != nil {
				return err
			}
			if active.IsValid(now, compromised) {
				log.Warn("invitation rejected: active invitation exists",
					slog.String("invitation_id", active.ID),
				)
				return ErrActiveInvitation
			}
		}

		token, err = s.newToken(ctx, tx)
		if err != nil {
			return err
		}

		inv = domain.Invitation{
			ID:        idx.NewAt(now).String(),
			Email:     email,
			TokenHash: cryptox.FingerprintToken(token),
			Role:      p.Role,
			SentBy:    p.SentBy,
			ExpiresAt: now.Add(validity),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Invitations().CreateInvitation(ctx, inv)
	})
	if err != nil {
		return domain.Invitation{}, "", err
	}

	metrics.RecordInvitation("issued")
	log.Info("invitation issued",
		slog.String("invitation_id", inv.ID),
		slog.String("role", inv.Role),
		slog.String("sent_by", inv.SenderOrSystem()),
		slog.Time("expires_at", inv.ExpiresAt),
	)

	s.dispatch(ctx, inv, token, p.SenderName)
	return inv, token, nil
}

// Resend replaces the token of a not-yet-accepted invitation and restarts
// its validity window. Expired and revoked invitations become pending again.
// The new expiry must be later than the current one.
func (s *InvitationService) Resend(ctx context.Context, id string, validDays int) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx).With(slog.String("invitation_id", id))

	validity, err := s.validity(validDays)
	if err != nil {
		return domain.Invitation{}, "", err
	}

	now := s.now()
	var (
		inv   domain.Invitation
		token string
	)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invitations().LockInvitation(ctx, id)
		if err != nil {
			return mapInvitationErr(err)
		}

		if inv.IsAccepted() {
			log.Warn("resend rejected: invitation already accepted")
			return ErrInvitationAccepted
		}
		if !now.Add(validity).After(inv.ExpiresAt) {
			log.Warn("resend rejected: validity would not extend the expiry",
				slog.Time("expires_at", inv.ExpiresAt),
			)
			return ErrExpiryNotExtended
		}

		token, err = s.newToken(ctx, tx)
		if err != nil {
			return err
		}
		if err := inv.Refresh(cryptox.FingerprintToken(token), now, validity); err != nil {
			return ErrInvitationAccepted
		}

		// Attempt counts belong to the old token. The row lock keeps a
		// concurrent resend or accept from racing the reset.
		if s.Attempts != nil {
			if err := s.Attempts.Reset(ctx, id); err != nil {
				log.Error("failed to reset invitation attempts", slog.Any("error", err))
				return err
			}
		}
		return mapInvitationErr(tx.Invitations().UpdateInvitation(ctx, inv))
	})
	if err != nil {
		return domain.Invitation{}, "", err
	}

	metrics.RecordInvitation("resent")
	log.Info("invitation resent", slog.Time("expires_at", inv.ExpiresAt))

	s.dispatch(ctx, inv, token, "")
	return inv, token, nil
}

// Revoke expires an invitation immediately and discards its token. The
// record stays for auditing.
func (s *InvitationService) Revoke(ctx context.Context, id string) (domain.Invitation, error) {
	log := slogx.FromContext(ctx).With(slog.String("invitation_id", id))
	now := s.now()

	var inv domain.Invitation
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invitations().LockInvitation(ctx, id)
		if err != nil {
			return mapInvitationErr(err)
		}
		if err := inv.Revoke(now); err != nil {
			log.Warn("revoke rejected: invitation already accepted")
			return ErrInvitationAccepted
		}
		return mapInvitationErr(tx.Invitations().UpdateInvitation(ctx, inv))
	})
	if err != nil {
		return domain.Invitation{}, err
	}

	s.resetAttempts(ctx, id)
	metrics.RecordInvitation("revoked")
	log.Info("invitation revoked")
	return inv, nil
}

// Inspect resolves a registration token the way the registration page does:
// every call counts as one probe of the token.
func (s *InvitationService) Inspect(ctx context.Context, token string) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	if token == "" {
		metrics.RecordTokenProbe("not_found")
		return domain.Invitation{}, ErrInvitationNotFound
	}

	inv, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordTokenProbe("not_found")
			log.Warn("registration attempted with unknown token")
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, err
	}

	var count int64
	if s.Attempts != nil {
		if count, err = s.Attempts.Increment(ctx, inv.ID); err != nil {
			log.Error("failed to count invitation attempt",
				slog.String("invitation_id", inv.ID),
				slog.Any("error", err),
			)
			return domain.Invitation{}, err
		}
	}

	if err := s.check(inv, count > s.maxAttempts()); err != nil {
		metrics.RecordTokenProbe(probeResult(err))
		return domain.Invitation{}, err
	}
	metrics.RecordTokenProbe("valid")
	return inv, nil
}

// Accept consumes a valid token: the account, its role and the accepted
// invitation are committed together or not at all.
func (s *InvitationService) Accept(ctx context.Context, token string, reg Registration) (domain.User, error) {
	log := slogx.FromContext(ctx)

	reg, err := reg.normalize(s.PhoneRegion)
	if err != nil {
		return domain.User{}, err
	}
	if token == "" {
		return domain.User{}, ErrInvitationNotFound
	}

	fingerprint := cryptox.FingerprintToken(token)
	found, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("acceptance attempted with unknown token")
			return domain.User{}, ErrInvitationNotFound
		}
		return domain.User{}, err
	}
	log = log.With(slog.String("invitation_id", found.ID))

	compromised, err := s.isCompromised(ctx, found.ID)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.check(found, compromised); err != nil {
		return domain.User{}, err
	}

	passwordHash, err := cryptox.HashPassword(reg.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := s.now()
	var (
		user domain.User
		inv  domain.Invitation
	)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invitations().LockInvitation(ctx, found.ID)
		if err != nil {
			return mapInvitationErr(err)
		}

		// Another request may have accepted or resent it since the lookup.
		if err := s.check(inv, compromised); err != nil {
			return err
		}
		if inv.TokenHash != fingerprint {
			return ErrInvitationNotFound
		}

		role, err := tx.Roles().GetRoleByName(ctx, inv.Role)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownRole
			}
			return err
		}

		if _, err := tx.Users().GetUserByEmail(ctx, inv.Email); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if reg.Username != "" {
			if _, err := tx.Users().GetUserByUsername(ctx, reg.Username); err == nil {
				return ErrUsernameTaken
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		verified, lastLogin := now, now
		user = domain.User{
			ID:              idx.NewAt(now).String(),
			Name:            reg.Name,
			Email:           inv.Email,
			Username:        reg.Username,
			Phone:           reg.Phone,
			PasswordHash:    passwordHash,
			EmailVerifiedAt: &verified,
			Active:          true,
			LastLoginAt:     &lastLogin,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUserExists
			}
			return err
		}
		if err := tx.Users().AssignRole(ctx, user.ID, role.ID); err != nil {
			return err
		}

		if err := inv.MarkAccepted(now); err != nil {
			return ErrInvitationAccepted
		}
		return mapInvitationErr(tx.Invitations().UpdateInvitation(ctx, inv))
	})
	if err != nil {
		log.Warn("invitation acceptance failed", slog.Any("error", err))
		return domain.User{}, err
	}

	s.resetAttempts(ctx, inv.ID)
	metrics.RecordInvitation("accepted")
	log.Info("invitation accepted",
		slog.String("user_id", user.ID),
		slog.String("role", inv.Role),
	)

	if s.Events != nil {
		s.Events.Publish(ctx, events.UserRegistered{
			UserID:       user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Role:         inv.Role,
			InvitationID: inv.ID,
			At:           now,
		})
	}
	return user, nil
}

func (s *InvitationService) Get(ctx context.Context, id string) (InvitationView, error) {
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		return InvitationView{}, mapInvitationErr(err)
	}
	return s.view(ctx, inv, s.now())
}

// List returns invitations matching filter, newest first.
func (s *InvitationService) List(ctx context.Context, filter domain.InvitationFilter) ([]InvitationView, error) {
	now := s.now()
	filter.Now = now
	if filter.Email != "" {
		email, err := NormalizeEmail(filter.Email)
		if err != nil {
			return nil, err
		}
		filter.Email = email
	}

	invs, err := s.Store.Invitations().ListInvitations(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		v, err := s.view(ctx, inv, now)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// IsValid reports whether the invitation can still be accepted, taking the
// probe counter into account.
func (s *InvitationService) IsValid(ctx context.Context, inv domain.Invitation) (bool, error) {
	compromised, err := s.isCompromised(ctx, inv.ID)
	if err != nil {
		return false, err
	}
	return inv.IsValid(s.now(), compromised), nil
}

// IsTokenCompromised reports whether the invitation's token was probed more
// often than allowed within the attempt window.
func (s *InvitationService) IsTokenCompromised(ctx context.Context, id string) (bool, error) {
	return s.isCompromised(ctx, id)
}

// Status returns the lifecycle state of an invitation. Compromise is
// reported separately and never changes the status.
func (s *InvitationService) Status(ctx context.Context, id string) (domain.InvitationStatus, bool, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	return v.Status, v.Compromised, nil
}

func (s *InvitationService) view(ctx context.Context, inv domain.Invitation, now time.Time) (InvitationView, error) {
	v := InvitationView{Invitation: inv, Status: inv.Status(now)}
	if s.Attempts == nil || inv.IsAccepted() {
		return v, nil
	}

	n, err := s.Attempts.Count(ctx, inv.ID)
	if err != nil {
		return InvitationView{}, err
	}
	v.Attempts = n
	v.Compromised = n > s.maxAttempts()
	return v, nil
}

// check maps an invitation that cannot be accepted to the matching error.
// Compromise wins over expiry so the caller learns why access was denied.
func (s *InvitationService) check(inv domain.Invitation, compromised bool) error {
	switch {
	case inv.IsAccepted():
		return ErrInvitationAccepted
	case compromised:
		return ErrTokenCompromised
	case inv.IsExpired(s.now()):
		return ErrInvitationExpired
	}
	return nil
}

func probeResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenCompromised):
		return "compromised"
	case errors.Is(err, ErrInvitationExpired):
		return "expired"
	case errors.Is(err, ErrInvitationAccepted):
		return "accepted"
	}
	return "error"
}

func (s *InvitationService) maxAttempts() int64 {
	if s.Attempts == nil || s.Attempts.Max <= 0 {
		return domain.MaxAttempts
	}
	return s.Attempts.Max
}

func (s *InvitationService) isCompromised(ctx context.Context, id string) (bool, error) {
	if s.Attempts == nil {
		return false, nil
	}
	return s.Attempts.IsCompromised(ctx, id)
}

func (s *InvitationService) resetAttempts(ctx context.Context, id string) {
	if s.Attempts == nil {
		return
	}
	if err := s.Attempts.Reset(ctx, id); err != nil {
		slogx.FromContext(ctx).Warn("failed to reset invitation attempts",
			slog.String("invitation_id", id),
			slog.Any("error", err),
		)
	}
}

func (s *InvitationService) newToken(ctx context.Context, tx store.Tx) (string, error) {
	token, err := generateUnique(ctx, maxUniqueAttempts,
		func() (string, error) { return cryptox.GenerateToken(cryptox.TokenSize256) },
		func(ctx context.Context, token string) (bool, error) {
			return tx.Invitations().TokenHashExists(ctx, cryptox.FingerprintToken(token))
		},
	)
	if errors.Is(err, errNoUniqueValue) {
		return "", fmt.Errorf("%w after %d attempts", ErrTokenGeneration, maxUniqueAttempts)
	}
	return token, err
}

// dispatch hands the raw token to the notifier once the invitation is
// committed. Delivery failures are logged and never undo the invitation.
func (s *InvitationService) dispatch(ctx context.Context, inv domain.Invitation, token, senderName string) {
	if s.Notifier == nil {
		return
	}

	notice := notify.InvitationNotice{
		InvitationID: inv.ID,
		Email:        inv.Email,
		Token:        token,
		Role:         inv.Role,
		SenderName:   s.senderName(ctx, inv, senderName),
		ExpiresAt:    inv.ExpiresAt,
		Link:         notify.RegistrationLink(s.BaseURL, token),
	}
	if err := s.Notifier.SendInvitation(ctx, notice); err != nil {
		slogx.FromContext(ctx).Error("failed to dispatch invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
	}
}

// senderName prefers the issuing user's stored name over the fallback.
func (s *InvitationService) senderName(ctx context.Context, inv domain.Invitation, fallback string) string {
	if inv.SentBy != "" {
		if u, err := s.Store.Users().GetUserByID(ctx, inv.SentBy); err == nil && u.Name != "" {
			return u.Name
		}
	}
	if fallback != "" {
		return fallback
	}
	return systemSenderName
}

func mapInvitationErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvitationNotFound
	}
	return err
}
