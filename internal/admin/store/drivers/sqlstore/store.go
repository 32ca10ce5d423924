// Package sqlstore holds the repositories shared by the SQL drivers. The
// drivers only differ in how they open the database, how they migrate it and
// in the small set of behaviours captured by Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/jmoiron/sqlx"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	// LockSuffix is appended to SELECTs that must hold a row lock until the
	// transaction ends, e.g. " FOR UPDATE". Empty when the driver serializes
	// writers some other way.
	LockSuffix string

	// EmailLock is executed with an email address to hold a transaction
	// scoped lock on it. Empty when BEGIN already serializes writers.
	EmailLock string

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(error) bool
}

// Migrator applies pending schema migrations to db.
type Migrator func(db *sql.DB) error

type Store struct {
	db      *sqlx.DB
	dialect Dialect
	migrate Migrator
}

func New(db *sqlx.DB, dialect Dialect, migrate Migrator) *Store {
	return &Store{db: db, dialect: dialect, migrate: migrate}
}

// DB exposes the underlying handle for drivers and tests.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ApplyMigrations() error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(s.db.DB)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, dialect: s.dialect}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback after a successful commit returns sql.ErrTxDone, which we ignore.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Invitations() store.Invitations {
	return &invitationsRepo{q: s.db, dialect: s.dialect}
}
func (s *Store) Users() store.Users { return &usersRepo{q: s.db, dialect: s.dialect} }
func (s *Store) Roles() store.Roles { return &rolesRepo{q: s.db, dialect: s.dialect} }
func (s *Store) Sequences() store.Sequences {
	return &sequencesRepo{q: s.db, dialect: s.dialect}
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (d Dialect) mapWriteErr(err error) error {
	if err != nil && d.IsUniqueViolation != nil && d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// expectOne turns a zero-row UPDATE into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
