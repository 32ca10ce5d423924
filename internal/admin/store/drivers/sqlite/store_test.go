package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestBuildDSN(t *testing.T) {
	require.Equal(t, "file:/tmp/a.db?"+dsnOptions, buildDSN("/tmp/a.db"))
	require.Equal(t, "file:a.db?mode=rwc&"+dsnOptions, buildDSN("file:a.db?mode=rwc"))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())

	roles, err := s.Roles().ListRoles(context.Background())
	require.NoError(t, err)

	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"admin", "manager", "staff", "user"}, names)
}

func TestActiveInvitationsByEmailReturnsEveryPendingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	for _, inv := range []domain.Invitation{
		{ID: "inv-old", Email: "d@example.com", TokenHash: "fp-old", Role: "staff", ExpiresAt: now.Add(48 * time.Hour), CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "inv-new", Email: "d@example.com", TokenHash: "fp-new", Role: "staff", ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now.Add(-time.Hour)},
		{ID: "inv-gone", Email: "d@example.com", Role: "staff", ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-3 * time.Hour)},
	} {
		require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))
	}

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Invitations().LockInvitationEmail(ctx, "d@example.com"))

		got, err := tx.Invitations().ListActiveInvitationsByEmail(ctx, "d@example.com", now)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "inv-new", got[0].ID)
		require.Equal(t, "inv-old", got[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestInvitationsRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	accepted := now.Add(-time.Hour)

	fixtures := []domain.Invitation{
		{ID: "inv-pending", Email: "a@example.com", TokenHash: "fp-a", Role: "staff", SentBy: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "inv-expired", Email: "b@example.com", TokenHash: "fp-b", Role: "staff", ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "inv-accepted", Email: "c@example.com", Role: "manager", ExpiresAt: now.Add(time.Hour), AcceptedAt: &accepted, CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, inv := range fixtures {
		require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))
	}

	t.Run("duplicate token hash", func(t *testing.T) {
		err := s.Invitations().CreateInvitation(ctx, domain.Invitation{
			ID: "dup", Email: "d@example.com", TokenHash: "fp-a", Role: "staff", ExpiresAt: now,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := s.Invitations().GetInvitationByTokenHash(ctx, "fp-a")
		require.NoError(t, err)
		require.Equal(t, "inv-pending", got.ID)
		require.Equal(t, "u1", got.SentBy)
		require.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))

		_, err = s.Invitations().GetInvitationByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)

		exists, err := s.Invitations().TokenHashExists(ctx, "fp-b")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("active by email", func(t *testing.T) {
		got, err := s.Invitations().ListActiveInvitationsByEmail(ctx, "a@example.com", now)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "inv-pending", got[0].ID)

		for _, email := range []string{"b@example.com", "c@example.com"} {
			got, err := s.Invitations().ListActiveInvitationsByEmail(ctx, email, now)
			require.NoError(t, err)
			require.Empty(t, got, email)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		for status, want := range map[domain.InvitationStatus]string{
			domain.InvitationPending:  "inv-pending",
			domain.InvitationExpired:  "inv-expired",
			domain.InvitationAccepted: "inv-accepted",
		} {
			got, err := s.Invitations().ListInvitations(ctx, domain.InvitationFilter{Status: status, Now: now})
			require.NoError(t, err)
			require.Len(t, got, 1, status)
			require.Equal(t, want, got[0].ID)
		}

		all, err := s.Invitations().ListInvitations(ctx, domain.InvitationFilter{Now: now, Limit: 2})
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, "inv-accepted", all[0].ID)
		require.Equal(t, "inv-pending", all[1].ID)
	})

	t.Run("update clears token", func(t *testing.T) {
		inv, err := s.Invitations().GetInvitationByID(ctx, "inv-pending")
		require.NoError(t, err)
		require.NoError(t, inv.Revoke(now))
		require.NoError(t, s.Invitations().UpdateInvitation(ctx, inv))

		exists, err := s.Invitations().TokenHashExists(ctx, "fp-a")
		require.NoError(t, err)
		require.False(t, exists)

		got, err := s.Invitations().GetInvitationByID(ctx, "inv-pending")
		require.NoError(t, err)
		require.Equal(t, domain.InvitationExpired, got.Status(now))
	})

	t.Run("delete stale keeps accepted", func(t *testing.T) {
		n, err := s.Invitations().DeleteStaleInvitations(ctx, now.Add(48*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		_, err = s.Invitations().GetInvitationByID(ctx, "inv-accepted")
		require.NoError(t, err)
	})
}

func TestUsersRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := domain.User{
		ID:              "user-1",
		Name:            "Pat Baker",
		Email:           "pat@example.com",
		Username:        "pat",
		Phone:           "+61412345678",
		PasswordHash:    "hash",
		EmailVerifiedAt: &now,
		Active:          true,
		LastLoginAt:     &now,
	}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	dup := u
	dup.ID = "user-2"
	dup.Username = ""
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	got, err := s.Users().GetUserByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	require.Equal(t, "pat", got.Username)
	require.True(t, got.Active)
	require.NotNil(t, got.EmailVerifiedAt)

	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	role, err := s.Roles().GetRoleByName(ctx, domain.RoleManager)
	require.NoError(t, err)
	require.NoError(t, s.Users().AssignRole(ctx, u.ID, role.ID))
	require.ErrorIs(t, s.Users().AssignRole(ctx, u.ID, role.ID), store.ErrAlreadyExists)

	roles, err := s.Users().ListUserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, domain.RoleManager, roles[0].Name)
}

func TestTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Roles().CreateRole(ctx, domain.Role{ID: "r-baker", Name: "baker"}))
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Roles().GetRoleByName(ctx, "baker")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.Error(t, err, "nested transactions are rejected")
}

func TestSequencesRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(0); want < 3; want++ {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			last, err := tx.Sequences().LockSequence(ctx, "order:20261017")
			require.NoError(t, err)
			require.Equal(t, want, last)
			return tx.Sequences().SetSequence(ctx, "order:20261017", last+1)
		})
		require.NoError(t, err)
	}

	n := domain.IssuedNumber{Number: "ORD-20261017-0001", Kind: "order", IssuedAt: time.Now()}
	require.NoError(t, s.Sequences().RecordNumber(ctx, n))
	require.ErrorIs(t, s.Sequences().RecordNumber(ctx, n), store.ErrAlreadyExists)

	exists, err := s.Sequences().NumberExists(ctx, n.Number)
	require.NoError(t, err)
	require.True(t, exists)

	require.ErrorIs(t, s.Sequences().SetSequence(ctx, "missing", 1), store.ErrNotFound)
}
