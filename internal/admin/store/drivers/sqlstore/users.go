package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

const userColumns = `id, name, email, username, phone, password_hash, email_verified_at, is_active, last_login_at, created_at, updated_at`

type userRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	Username        sql.NullString `db:"username"`
	Phone           sql.NullString `db:"phone"`
	PasswordHash    string         `db:"password_hash"`
	EmailVerifiedAt sql.NullTime   `db:"email_verified_at"`
	IsActive        bool           `db:"is_active"`
	LastLoginAt     sql.NullTime   `db:"last_login_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Username:        mapNullString(r.Username),
		Phone:           mapNullString(r.Phone),
		PasswordHash:    r.PasswordHash,
		EmailVerifiedAt: mapNullTimePtr(r.EmailVerifiedAt),
		Active:          r.IsActive,
		LastLoginAt:     mapNullTimePtr(r.LastLoginAt),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type usersRepo struct {
	q       queryer
	dialect Dialect
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID,
		u.Name,
		u.Email,
		mapStringNull(u.Username),
		mapStringNull(u.Phone),
		u.PasswordHash,
		mapOptionalTime(u.EmailVerifiedAt),
		u.Active,
		mapOptionalTime(u.LastLoginAt),
		utc(u.CreatedAt),
		utc(u.UpdatedAt),
	)
	return r.dialect.mapWriteErr(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)`),
		userID, roleID, time.Now().UTC(),
	)
	return r.dialect.mapWriteErr(err)
}

func (r *usersRepo) ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	var rows []roleRow
	err := r.q.SelectContext(ctx, &rows, r.q.Rebind(`
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name`), userID)
	if err != nil {
		return nil, err
	}
	return mapRoles(rows), nil
}

func (r *usersRepo) getOne(ctx context.Context, query string, args ...interface{}) (domain.User, error) {
	var row userRow
	if err := r.q.GetContext(ctx, &row, r.q.Rebind(query), args...); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

var _ store.Users = (*usersRepo)(nil)
