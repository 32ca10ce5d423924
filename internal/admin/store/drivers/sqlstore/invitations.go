package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

const invitationColumns = `id, email, token_hash, role, sent_by, expires_at, accepted_at, created_at, updated_at`

type invitationRow struct {
	ID         string         `db:"id"`
	Email      string         `db:"email"`
	TokenHash  sql.NullString `db:"token_hash"`
	Role       string         `db:"role"`
	SentBy     sql.NullString `db:"sent_by"`
	ExpiresAt  time.Time      `db:"expires_at"`
	AcceptedAt sql.NullTime   `db:"accepted_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r invitationRow) toDomain() domain.Invitation {
	return domain.Invitation{
		ID:         r.ID,
		Email:      r.Email,
		TokenHash:  mapNullString(r.TokenHash),
		Role:       r.Role,
		SentBy:     mapNullString(r.SentBy),
		ExpiresAt:  r.ExpiresAt.UTC(),
		AcceptedAt: mapNullTimePtr(r.AcceptedAt),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type invitationsRepo struct {
	q       queryer
	dialect Dialect
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	if inv.UpdatedAt.IsZero() {
		inv.UpdatedAt = inv.CreatedAt
	}

	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID,
		inv.Email,
		mapStringNull(inv.TokenHash),
		inv.Role,
		mapStringNull(inv.SentBy),
		utc(inv.ExpiresAt),
		mapOptionalTime(inv.AcceptedAt),
		utc(inv.CreatedAt),
		utc(inv.UpdatedAt),
	)
	return r.dialect.mapWriteErr(err)
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (domain.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, tokenHash)
}

func (r *invitationsRepo) LockInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`+r.dialect.LockSuffix, id)
}

func (r *invitationsRepo) LockInvitationEmail(ctx context.Context, email string) error {
	if r.dialect.EmailLock == "" {
		return nil
	}
	_, err := r.q.ExecContext(ctx, r.q.Rebind(r.dialect.EmailLock), email)
	return err
}

func (r *invitationsRepo) ListActiveInvitationsByEmail(ctx context.Context, email string, now time.Time) ([]domain.Invitation, error) {
	return r.ListInvitations(ctx, domain.InvitationFilter{
		Status: domain.InvitationPending,
		Email:  email,
		Now:    now,
	})
}

func (r *invitationsRepo) TokenHashExists(ctx context.Context, tokenHash string) (bool, error) {
	var n int
	err := r.q.GetContext(ctx, &n, r.q.Rebind(`SELECT COUNT(1) FROM invitations WHERE token_hash = ?`), tokenHash)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) UpdateInvitation(ctx context.Context, inv domain.Invitation) error {
	if inv.UpdatedAt.IsZero() {
		inv.UpdatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE invitations
		SET token_hash = ?, expires_at = ?, accepted_at = ?, updated_at = ?
		WHERE id = ?`),
		mapStringNull(inv.TokenHash),
		utc(inv.ExpiresAt),
		mapOptionalTime(inv.AcceptedAt),
		utc(inv.UpdatedAt),
		inv.ID,
	)
	return r.dialect.mapWriteErr(expectOne(res, err))
}

func (r *invitationsRepo) ListInvitations(ctx context.Context, filter domain.InvitationFilter) ([]domain.Invitation, error) {
	var (
		where []string
		args  []interface{}
	)

	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	switch filter.Status {
	case domain.InvitationPending:
		where = append(where, "accepted_at IS NULL AND expires_at > ?")
		args = append(args, utc(now))
	case domain.InvitationExpired:
		where = append(where, "accepted_at IS NULL AND expires_at <= ?")
		args = append(args, utc(now))
	case domain.InvitationAccepted:
		where = append(where, "accepted_at IS NOT NULL")
	}

	if filter.Email != "" {
		where = append(where, "email = ?")
		args = append(args, filter.Email)
	}

	query := `SELECT ` + invitationColumns + ` FROM invitations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []invitationRow
	if err := r.q.SelectContext(ctx, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	out := make([]domain.Invitation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *invitationsRepo) DeleteStaleInvitations(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		DELETE FROM invitations
		WHERE accepted_at IS NULL AND expires_at < ?`), utc(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *invitationsRepo) getOne(ctx context.Context, query string, args ...interface{}) (domain.Invitation, error) {
	var row invitationRow
	if err := r.q.GetContext(ctx, &row, r.q.Rebind(query), args...); err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

var _ store.Invitations = (*invitationsRepo)(nil)
