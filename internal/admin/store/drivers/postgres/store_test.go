package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestLockInvitationUsesRowLock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM invitations WHERE id = \$1 FOR UPDATE`).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "token_hash", "role", "sent_by", "expires_at", "accepted_at", "created_at", "updated_at",
		}).AddRow("inv-1", "baker@example.com", "fp", "staff", nil, now.Add(time.Hour), nil, now, now))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().LockInvitation(ctx, "inv-1")
		require.NoError(t, err)
		require.Equal(t, "baker@example.com", inv.Email)
		require.Equal(t, "fp", inv.TokenHash)
		require.Empty(t, inv.SentBy)
		require.Nil(t, inv.AcceptedAt)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueLocksEmailBeforeListingPending(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	columns := []string{
		"id", "email", "token_hash", "role", "sent_by", "expires_at", "accepted_at", "created_at", "updated_at",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("baker@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM invitations WHERE accepted_at IS NULL AND expires_at > \$1 AND email = \$2 ORDER BY created_at DESC, id DESC`).
		WithArgs(sqlmock.AnyArg(), "baker@example.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("inv-2", "baker@example.com", "fp-2", "staff", nil, now.Add(time.Hour), nil, now, now).
			AddRow("inv-1", "baker@example.com", "fp-1", "staff", nil, now.Add(2*time.Hour), nil, now.Add(-time.Hour), now))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invitations().LockInvitationEmail(ctx, "baker@example.com"); err != nil {
			return err
		}
		pending, err := tx.Invitations().ListActiveInvitationsByEmail(ctx, "baker@example.com", now)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, "inv-2", pending[0].ID)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSequenceUpsertsThenLocks(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sequences \(scope, last_value, updated_at\) VALUES \(\$1, 0, \$2\) ON CONFLICT \(scope\) DO NOTHING`).
		WithArgs("order:20261017", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT last_value FROM sequences WHERE scope = \$1 FOR UPDATE`).
		WithArgs("order:20261017").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(int64(4)))
	mock.ExpectRollback()

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	last, err := tx.Sequences().LockSequence(ctx, "order:20261017")
	require.NoError(t, err)
	require.EqualValues(t, 4, last)
	require.NoError(t, tx.Rollback())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolationMapsToAlreadyExists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO invitations`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.Invitations().CreateInvitation(context.Background(), domain.Invitation{
		ID:        "inv-1",
		Email:     "baker@example.com",
		TokenHash: "fp",
		Role:      "staff",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingInvitationIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE invitations SET token_hash = \$1, expires_at = \$2, accepted_at = \$3, updated_at = \$4 WHERE id = \$5`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Invitations().UpdateInvitation(context.Background(), domain.Invitation{ID: "missing"})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresIntegration runs the migrations and a lock round trip against a
// real server. It needs a working Docker daemon.
func TestPostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "bakeboard",
				"POSTGRES_PASSWORD": "bakeboard",
				"POSTGRES_DB":       "bakeboard",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://bakeboard:bakeboard@%s:%s/bakeboard?sslmode=disable", host, port.Port())
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	roles, err := s.Roles().ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 4)

	now := time.Now().UTC().Truncate(time.Microsecond)
	inv := domain.Invitation{
		ID:        "01JA00000000000000000000Z1",
		Email:     "baker@example.com",
		TokenHash: "fingerprint",
		Role:      domain.RoleStaff,
		ExpiresAt: now.Add(domain.DefaultValidity),
		CreatedAt: now,
	}
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

	err = s.WithTx(ctx, func(tx store.Tx) error {
		locked, err := tx.Invitations().LockInvitation(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := locked.MarkAccepted(now); err != nil {
			return err
		}
		return tx.Invitations().UpdateInvitation(ctx, locked)
	})
	require.NoError(t, err)

	got, err := s.Invitations().GetInvitationByID(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, got.IsAccepted())
	require.Empty(t, got.TokenHash)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	last, err := tx.Sequences().LockSequence(ctx, "order:20261017")
	require.NoError(t, err)
	require.Zero(t, last)
	require.NoError(t, tx.Sequences().SetSequence(ctx, "order:20261017", last+1))
	require.NoError(t, tx.Commit())
}
