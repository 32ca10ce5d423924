package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

type sequencesRepo struct {
	q       queryer
	dialect Dialect
}

func (r *sequencesRepo) LockSequence(ctx context.Context, scope string) (int64, error) {
	// 1. Make sure there is a row to lock.
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO sequences (scope, last_value, updated_at) VALUES (?, 0, ?)
		ON CONFLICT (scope) DO NOTHING`), scope, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	// 2. Read it under lock.
	var last int64
	err = r.q.GetContext(ctx, &last, r.q.Rebind(
		`SELECT last_value FROM sequences WHERE scope = ?`+r.dialect.LockSuffix), scope)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return last, nil
}

func (r *sequencesRepo) SetSequence(ctx context.Context, scope string, value int64) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE sequences SET last_value = ?, updated_at = ? WHERE scope = ?`),
		value, time.Now().UTC(), scope,
	)
	return expectOne(res, err)
}

func (r *sequencesRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := r.q.GetContext(ctx, &n, r.q.Rebind(`SELECT COUNT(1) FROM issued_numbers WHERE number = ?`), number)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sequencesRepo) RecordNumber(ctx context.Context, n domain.IssuedNumber) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO issued_numbers (number, kind, issued_at) VALUES (?, ?, ?)`),
		n.Number, n.Kind, utc(n.IssuedAt),
	)
	return r.dialect.mapWriteErr(err)
}

var _ store.Sequences = (*sequencesRepo)(nil)
