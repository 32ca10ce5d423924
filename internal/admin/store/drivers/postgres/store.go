package postgres

import (
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/sqlstore"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

var Dialect = sqlstore.Dialect{
	LockSuffix:        " FOR UPDATE",
	EmailLock:         "SELECT pg_advisory_xact_lock(hashtext(?))",
	IsUniqueViolation: isUniqueViolation,
}

type Store struct {
	*sqlstore.Store
}

// NewStore connects using a lib/pq connection string or URL.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle, e.g. one produced by sqlmock.
func NewWithDB(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(sqlx.NewDb(db, "postgres"), Dialect, applyMigrations)}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
