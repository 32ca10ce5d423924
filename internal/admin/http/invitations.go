package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/idx"
)

const maxListLimit = 500

type InvitationsHandler struct {
	Service *service.InvitationService
}

// HandleIssue godoc
//
//	@Summary		Issue an invitation
//	@Description	Invite someone by email to create an account with the given role. The raw registration token is only ever returned here and in resend responses.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.IssueInvitationRequest	true	"Invitation"
//	@Success		201		{object}	adminsdk.InvitationResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"invalid_request, validation_error"
//	@Failure		401		{object}	adminsdk.ErrorResponse
//	@Failure		403		{object}	adminsdk.ErrorResponse
//	@Failure		409		{object}	adminsdk.ErrorResponse	"conflict: user or valid invitation exists"
//	@Security		BearerAuth
//	@Router			/v1/invitations [post].
func (h *InvitationsHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminsdk.IssueInvitationRequest
	if !decode(w, r, &req) {
		return
	}

	claims, _ := httpx.ClaimsFromContext(ctx)
	params := service.IssueParams{
		Email:      req.Email,
		Role:       req.Role,
		SenderName: claims.Name,
		ValidDays:  req.ValidDays,
	}
	// Only user ids are recorded as sender; service tokens issue as system.
	if idx.Valid(claims.Subject) {
		params.SentBy = claims.Subject
	}

	inv, token, err := h.Service.Issue(ctx, params)
	if err != nil {
		writeServiceError(w, r, err, "issue invitation")
		return
	}

	view := service.InvitationView{Invitation: inv, Status: domain.InvitationPending}
	httpx.WriteJSON(w, http.StatusCreated, h.withToken(toInvitationResponse(view), token))
}

// HandleList godoc
//
//	@Summary		List invitations
//	@Description	Newest first. Each entry carries its derived status and, separately, whether its token is compromised.
//	@Tags			Invitations
//	@Produce		json
//	@Param			status	query		string	false	"pending, expired or accepted"
//	@Param			email	query		string	false	"Recipient email"
//	@Param			limit	query		int		false	"Maximum number of results (max 500)"
//	@Success		200		{object}	adminsdk.ListInvitationsResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations [get].
func (h *InvitationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.InvitationFilter{
		Status: domain.InvitationStatus(q.Get("status")),
		Email:  q.Get("email"),
		Limit:  maxListLimit,
	}
	switch filter.Status {
	case "", domain.InvitationPending, domain.InvitationExpired, domain.InvitationAccepted:
	default:
		httpx.WriteError(w, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest, "status must be pending, expired or accepted")
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			httpx.WriteError(w, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = n
	}

	views, err := h.Service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "list invitations")
		return
	}

	resp := adminsdk.ListInvitationsResponse{Invitations: make([]adminsdk.InvitationResponse, len(views))}
	for i, v := range views {
		resp.Invitations[i] = toInvitationResponse(v)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet godoc
//
//	@Summary	Get an invitation
//	@Tags		Invitations
//	@Produce	json
//	@Param		id	path		string	true	"Invitation ID"
//	@Success	200	{object}	adminsdk.InvitationResponse
//	@Failure	404	{object}	adminsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/invitations/{id} [get].
func (h *InvitationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get invitation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInvitationResponse(view))
}

// HandleResend godoc
//
//	@Summary		Resend an invitation
//	@Description	Issues a new token, restarts the validity window and clears the attempt counter. Expired and revoked invitations become pending again. The new expiry must be later than the current one.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"Invitation ID"
//	@Param			request	body		adminsdk.ResendInvitationRequest	false	"Validity override"
//	@Success		200		{object}	adminsdk.InvitationResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"validation_error: validity out of range or not extending the expiry"
//	@Failure		404		{object}	adminsdk.ErrorResponse
//	@Failure		409		{object}	adminsdk.ErrorResponse	"invitation_accepted"
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id}/resend [post].
func (h *InvitationsHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	// The body is optional.
	var req adminsdk.ResendInvitationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.WriteError(w, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest, err.Error())
		return
	}
	if !validBody(w, &req) {
		return
	}

	inv, token, err := h.Service.Resend(r.Context(), r.PathValue("id"), req.ValidDays)
	if err != nil {
		writeServiceError(w, r, err, "resend invitation")
		return
	}

	view := service.InvitationView{Invitation: inv, Status: domain.InvitationPending}
	httpx.WriteJSON(w, http.StatusOK, h.withToken(toInvitationResponse(view), token))
}

// HandleRevoke godoc
//
//	@Summary		Revoke an invitation
//	@Description	Expires the invitation immediately and discards its token. The record is kept.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string	true	"Invitation ID"
//	@Success		200	{object}	adminsdk.InvitationResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse
//	@Failure		409	{object}	adminsdk.ErrorResponse	"invitation_accepted"
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id}/revoke [post].
func (h *InvitationsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Service.Revoke(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "revoke invitation")
		return
	}

	view := service.InvitationView{Invitation: inv, Status: domain.InvitationExpired}
	httpx.WriteJSON(w, http.StatusOK, toInvitationResponse(view))
}

func (h *InvitationsHandler) withToken(resp adminsdk.InvitationResponse, token string) adminsdk.InvitationResponse {
	resp.Token = token
	resp.RegistrationLink = notify.RegistrationLink(h.Service.BaseURL, token)
	return resp
}

func toInvitationResponse(v service.InvitationView) adminsdk.InvitationResponse {
	return adminsdk.InvitationResponse{
		ID:          v.ID,
		Email:       v.Email,
		Role:        v.Role,
		SentBy:      v.SenderOrSystem(),
		Status:      string(v.Status),
		Compromised: v.Compromised,
		Attempts:    v.Attempts,
		ExpiresAt:   v.ExpiresAt,
		AcceptedAt:  v.AcceptedAt,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
