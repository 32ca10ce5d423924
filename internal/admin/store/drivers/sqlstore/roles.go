package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

const roleColumns = `id, name, description, created_at, updated_at`

type roleRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func mapRoles(rows []roleRow) []domain.Role {
	out := make([]domain.Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Role{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			CreatedAt:   row.CreatedAt.UTC(),
			UpdatedAt:   row.UpdatedAt.UTC(),
		})
	}
	return out
}

type rolesRepo struct {
	q       queryer
	dialect Dialect
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	return r.getOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	return r.getOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var rows []roleRow
	if err := r.q.SelectContext(ctx, &rows, `SELECT `+roleColumns+` FROM roles ORDER BY name`); err != nil {
		return nil, err
	}
	return mapRoles(rows), nil
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO roles (`+roleColumns+`) VALUES (?, ?, ?, ?, ?)`),
		role.ID, role.Name, role.Description, now, now,
	)
	return r.dialect.mapWriteErr(err)
}

func (r *rolesRepo) getOne(ctx context.Context, query string, args ...interface{}) (domain.Role, error) {
	var row roleRow
	if err := r.q.GetContext(ctx, &row, r.q.Rebind(query), args...); err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return mapRoles([]roleRow{row})[0], nil
}

var _ store.Roles = (*rolesRepo)(nil)
