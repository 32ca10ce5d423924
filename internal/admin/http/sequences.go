package http

import (
	"net/http"

	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
)

type SequencesHandler struct {
	Service *service.NumberingService
}

// ServeHTTP godoc
//
//	@Summary		Reserve the next reference number
//	@Description	Locks the counter of the sequence kind, advances it past numbers already in use and records the result.
//	@Description	Kinds: order, invoice, batch, purchase, delivery.
//	@Tags			Sequences
//	@Produce		json
//	@Param			kind	path		string	true	"Sequence kind"
//	@Success		201		{object}	adminsdk.SequenceNumberResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"validation_error: unknown kind"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"conflict: no free number found"
//	@Security		BearerAuth
//	@Router			/v1/sequences/{kind}/next [post].
func (h *SequencesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	issued, err := h.Service.Next(r.Context(), r.PathValue("kind"))
	if err != nil {
		writeServiceError(w, r, err, "issue number")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, adminsdk.SequenceNumberResponse{
		Number:   issued.Number,
		Kind:     issued.Kind,
		IssuedAt: issued.IssuedAt,
	})
}
