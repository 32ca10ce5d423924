package sqlite

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/sqlstore"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Pragmas applied to every connection. _txlock=immediate makes BEGIN take the
// database write lock, which is how row locks are emulated on SQLite.
const dsnOptions = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Dialect is exported for tests that build a store around their own handle.
var Dialect = sqlstore.Dialect{
	LockSuffix:        "",
	IsUniqueViolation: isUniqueViolation,
}

type Store struct {
	*sqlstore.Store
}

// NewStore opens the database file at path (":memory:" is not supported since
// each pooled connection would see its own database).
func NewStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Store: sqlstore.New(db, Dialect, applyMigrations)}, nil
}

func buildDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + dsnOptions
		}
		return path + "?" + dsnOptions
	}
	return "file:" + path + "?" + dsnOptions
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
