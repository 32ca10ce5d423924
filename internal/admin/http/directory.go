package http

import (
	"net/http"

	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
)

type RolesHandler struct {
	RolesService *service.RolesService
}

// ServeHTTP handles the list roles endpoint
//
//	@Summary		List all roles
//	@Description	Returns the roles an invitation may grant. Requires roles:read scope.
//	@Tags			Roles
//	@Produce		json
//	@Success		200	{object}	adminsdk.ListRolesResponse	"List of roles"
//	@Failure		401	{object}	adminsdk.ErrorResponse		"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	adminsdk.ErrorResponse		"Forbidden - missing required scope"
//	@Failure		500	{object}	adminsdk.ErrorResponse		"Internal server error"
//	@Security		BearerAuth
//	@Router			/v1/roles [get].
func (h *RolesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RolesService.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list roles")
		return
	}

	response := adminsdk.ListRolesResponse{
		Roles: make([]adminsdk.RoleInfo, len(roles)),
	}
	for i, role := range roles {
		response.Roles[i] = adminsdk.RoleInfo{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
		}
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

type UsersHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Get a user
//	@Description	Returns a user and the names of their roles. Requires users:read scope.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	adminsdk.UserResponse
//	@Failure		401	{object}	adminsdk.ErrorResponse
//	@Failure		403	{object}	adminsdk.ErrorResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/{id} [get].
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.UserService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get user")
		return
	}

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.Name
	}

	httpx.WriteJSON(w, http.StatusOK, adminsdk.UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Username:        user.Username,
		Phone:           user.Phone,
		Active:          user.Active,
		EmailVerifiedAt: user.EmailVerifiedAt,
		LastLoginAt:     user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
		Roles:           names,
	})
}
