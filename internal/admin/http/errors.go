package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go ones.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads and validates a JSON body, writing the error response itself
// when it fails.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, adminsdk.ErrorResponse{
			Error:            adminsdk.ErrorCodeInvalidRequest,
			ErrorDescription: err.Error(),
		})
		return false
	}
	return validBody(w, dst)
}

func validBody(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httpx.WriteJSON(w, http.StatusBadRequest, adminsdk.ErrorResponse{
			Error:            adminsdk.ErrorCodeInvalidRequest,
			ErrorDescription: err.Error(),
		})
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	httpx.WriteJSON(w, http.StatusBadRequest, adminsdk.ErrorResponse{
		Error:            adminsdk.ErrorCodeValidation,
		ErrorDescription: "request validation failed",
		Fields:           fields,
	})
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "too short (min " + fe.Param() + ")"
	case "max":
		return "too long (max " + fe.Param() + ")"
	case "gte", "lte":
		return "out of range"
	}
	return "invalid"
}

// writeServiceError maps service errors onto status codes by error kind.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var (
		status int
		body   = adminsdk.ErrorResponse{ErrorDescription: err.Error()}
	)

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		body.Error = adminsdk.ErrorCodeValidation
		if field := service.FieldOf(err); field != "" {
			body.Fields = map[string]string{field: err.Error()}
		}
	case errors.Is(err, domain.ErrNotFound):
		status, body.Error = http.StatusNotFound, adminsdk.ErrorCodeNotFound
	case errors.Is(err, domain.ErrConflict):
		status, body.Error = http.StatusConflict, adminsdk.ErrorCodeConflict
	case errors.Is(err, domain.ErrTerminalState):
		status, body.Error = http.StatusConflict, adminsdk.ErrorCodeInvitationAccepted
	case errors.Is(err, service.ErrTokenCompromised):
		status, body.Error = http.StatusGone, adminsdk.ErrorCodeTokenCompromised
	case errors.Is(err, domain.ErrExpired):
		status, body.Error = http.StatusGone, adminsdk.ErrorCodeInvitationExpired
	default:
		slogx.FromContext(r.Context()).Error("failed to "+action, "error", err)
		status = http.StatusInternalServerError
		body = adminsdk.ErrorResponse{
			Error:            adminsdk.ErrorCodeServerError,
			ErrorDescription: "failed to " + action,
		}
	}

	httpx.WriteJSON(w, status, body)
}
