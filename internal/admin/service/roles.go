package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

type RolesService struct {
	Store store.Store
}

// ListAll returns all roles an invitation may target.
func (s *RolesService) ListAll(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx)
}

type UserService struct {
	Store store.Store
}

// Get returns a user together with the names of their roles.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, []domain.Role, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrUserNotFound
		}
		return domain.User{}, nil, err
	}

	roles, err := s.Store.Users().ListUserRoles(ctx, id)
	if err != nil {
		return domain.User{}, nil, err
	}
	return u, roles, nil
}
