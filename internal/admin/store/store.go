package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off the store so that a Tx hands out
// repositories bound to the same transaction.
type Store interface {
	Invitations() Invitations
	Users() Users
	Roles() Roles
	Sequences() Sequences

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
// Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invitations interface {
	// CreateInvitation inserts a new invitation (id is provided by app via ULID).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// GetInvitationByTokenHash looks up by token fingerprint regardless of state.
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (domain.Invitation, error)

	// LockInvitation reads the invitation and holds a row lock on it until the
	// surrounding transaction ends. Only meaningful inside a Tx.
	LockInvitation(ctx context.Context, id string) (domain.Invitation, error)

	// LockInvitationEmail serializes writers issuing invitations for email until
	// the surrounding transaction ends. Only meaningful inside a Tx.
	LockInvitationEmail(ctx context.Context, email string) error

	// ListActiveInvitationsByEmail returns every non-accepted invitation for
	// email that has not expired at now, newest first.
	ListActiveInvitationsByEmail(ctx context.Context, email string, now time.Time) ([]domain.Invitation, error)

	TokenHashExists(ctx context.Context, tokenHash string) (bool, error)

	// UpdateInvitation persists token_hash, expires_at, accepted_at and updated_at.
	UpdateInvitation(ctx context.Context, inv domain.Invitation) error

	ListInvitations(ctx context.Context, filter domain.InvitationFilter) ([]domain.Invitation, error)

	// DeleteStaleInvitations removes non-accepted invitations that expired
	// before the cutoff.
	DeleteStaleInvitations(ctx context.Context, before time.Time) (int64, error)
}

type Users interface {
	// CreateUser inserts a new user. Duplicate email or username yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	AssignRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error
}

type Sequences interface {
	// LockSequence makes sure the scope row exists, locks it and returns its
	// last issued value. Only meaningful inside a Tx.
	LockSequence(ctx context.Context, scope string) (int64, error)

	SetSequence(ctx context.Context, scope string, value int64) error

	NumberExists(ctx context.Context, number string) (bool, error)
	RecordNumber(ctx context.Context, n domain.IssuedNumber) error
}
