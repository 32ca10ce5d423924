package sqlstore

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/jmoiron/sqlx"
)

type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before the first transaction.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Invitations() store.Invitations {
	return &invitationsRepo{q: t.tx, dialect: t.dialect}
}
func (t *txStore) Users() store.Users { return &usersRepo{q: t.tx, dialect: t.dialect} }
func (t *txStore) Roles() store.Roles { return &rolesRepo{q: t.tx, dialect: t.dialect} }
func (t *txStore) Sequences() store.Sequences {
	return &sequencesRepo{q: t.tx, dialect: t.dialect}
}

var _ store.Tx = (*txStore)(nil)
