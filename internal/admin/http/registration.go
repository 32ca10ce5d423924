package http

import (
	"net/http"

	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

// RegistrationHandler serves the public side of an invitation: the link a
// recipient follows from their email.
type RegistrationHandler struct {
	Service *service.InvitationService
	Users   *service.UserService
}

// HandleGet godoc
//
//	@Summary		Inspect a registration token
//	@Description	Returns the invitation behind a registration token so the form can be shown.
//	@Description	Every call counts against the token's attempt limit; a token probed too often is rejected as compromised.
//	@Tags			Registration
//	@Produce		json
//	@Param			token	path		string	true	"Registration token"
//	@Success		200		{object}	adminsdk.RegistrationInfo
//	@Failure		404		{object}	adminsdk.ErrorResponse	"not_found"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"invitation_accepted"
//	@Failure		410		{object}	adminsdk.ErrorResponse	"invitation_expired, token_compromised"
//	@Failure		429		{object}	adminsdk.ErrorResponse
//	@Router			/register/{token} [get].
func (h *RegistrationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Service.Inspect(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, err, "load invitation")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, adminsdk.RegistrationInfo{
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
	})
}

// HandlePost godoc
//
//	@Summary		Register with an invitation
//	@Description	Creates the account, assigns the invited role and marks the invitation accepted in one transaction.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string					true	"Registration token"
//	@Param			request	body		adminsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	adminsdk.RegisterResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"invalid_request, validation_error"
//	@Failure		404		{object}	adminsdk.ErrorResponse	"not_found"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"conflict, invitation_accepted"
//	@Failure		410		{object}	adminsdk.ErrorResponse	"invitation_expired, token_compromised"
//	@Failure		429		{object}	adminsdk.ErrorResponse
//	@Router			/register/{token} [post].
func (h *RegistrationHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.Service.Accept(ctx, r.PathValue("token"), service.Registration{
		Name:     req.Name,
		Password: req.Password,
		Username: req.Username,
		Phone:    req.Phone,
	})
	if err != nil {
		writeServiceError(w, r, err, "register")
		return
	}

	resp := adminsdk.RegisterResponse{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}
	// The account is committed at this point; a failed lookup only loses the role name.
	if _, roles, err := h.Users.Get(ctx, user.ID); err != nil {
		slogx.FromContext(ctx).Warn("failed to load roles of new user", "user_id", user.ID, "error", err)
	} else if len(roles) > 0 {
		resp.Role = roles[0].Name
	}

	httpx.WriteJSON(w, http.StatusCreated, resp)
}
