package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/attempts"
	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/bakeboard/pkg/adminsdk"
	"github.com/aussiebroadwan/bakeboard/pkg/cryptox"
	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "bakeboard-test"

type harness struct {
	router *Router
	signer *jwtx.HS256
	mail   *notify.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	t.Cleanup(func() { cryptox.SetPepperPath("") })

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), testIssuer)
	require.NoError(t, err)

	counter := attempts.NewMemoryCounter(128, time.Hour)
	mail := &notify.Memory{}

	r := NewRouter(signer, "test", st, slogx.Discard(), WithMetrics(), WithAttemptCounter(counter))
	r.InvitationService = &service.InvitationService{
		Store:    st,
		Attempts: attempts.NewTracker(counter),
		Notifier: mail,
		BaseURL:  "https://bakery.example",
	}
	r.NumberingService = &service.NumberingService{Store: st}
	r.RolesService = &service.RolesService{Store: st}
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()

	return &harness{router: r, signer: signer, mail: mail}
}

func (h *harness) token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := h.signer.Sign(jwtx.NewClaims("operator", "Head Baker", scopes, testIssuer, time.Hour, time.Now()))
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestInvitationFlow(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, AllScopes...)

	rec := h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{
		Email: "Flour@Bakery.example",
		Role:  domain.RoleStaff,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	issued := decodeBody[adminsdk.InvitationResponse](t, rec)
	require.Equal(t, "flour@bakery.example", issued.Email)
	require.Equal(t, "pending", issued.Status)
	require.Equal(t, domain.SystemSender, issued.SentBy)
	require.Len(t, issued.Token, 43)
	require.Equal(t, "https://bakery.example/register/"+issued.Token, issued.RegistrationLink)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	n, ok := h.mail.LastInvitation("flour@bakery.example")
	require.True(t, ok)
	require.Equal(t, "Head Baker", n.SenderName)

	rec = h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{
		Email: "flour@bakery.example",
		Role:  domain.RoleUser,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeConflict, decodeBody[adminsdk.ErrorResponse](t, rec).Error)

	rec = h.do(t, http.MethodGet, "/register/"+issued.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	info := decodeBody[adminsdk.RegistrationInfo](t, rec)
	require.Equal(t, domain.RoleStaff, info.Role)

	rec = h.do(t, http.MethodGet, "/v1/invitations/"+issued.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[adminsdk.InvitationResponse](t, rec)
	require.Equal(t, int64(1), got.Attempts)
	require.Empty(t, got.Token)

	rec = h.do(t, http.MethodPost, "/register/"+issued.Token, "", adminsdk.RegisterRequest{
		Name:     "Flo Baker",
		Password: "rye-sourdough-42",
		Username: "Flo",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeBody[adminsdk.RegisterResponse](t, rec)
	require.Equal(t, "flour@bakery.example", reg.Email)
	require.Equal(t, domain.RoleStaff, reg.Role)

	rec = h.do(t, http.MethodGet, "/v1/users/"+reg.UserID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody[adminsdk.UserResponse](t, rec)
	require.Equal(t, "flo", user.Username)
	require.Equal(t, []string{domain.RoleStaff}, user.Roles)

	rec = h.do(t, http.MethodPost, "/register/"+issued.Token, "", adminsdk.RegisterRequest{
		Name:     "Flo Again",
		Password: "rye-sourdough-42",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/resend", admin, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeInvitationAccepted, decodeBody[adminsdk.ErrorResponse](t, rec).Error)

	rec = h.do(t, http.MethodGet, "/v1/invitations?status=accepted", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[adminsdk.ListInvitationsResponse](t, rec)
	require.Len(t, list.Invitations, 1)
	require.Equal(t, issued.ID, list.Invitations[0].ID)
}

func TestResendAndRevoke(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, ScopeInvitationsRead, ScopeInvitationsWrite)

	rec := h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{
		Email: "crumb@bakery.example",
		Role:  domain.RoleUser,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	issued := decodeBody[adminsdk.InvitationResponse](t, rec)

	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/resend", admin, adminsdk.ResendInvitationRequest{ValidDays: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resent := decodeBody[adminsdk.InvitationResponse](t, rec)
	require.NotEqual(t, issued.Token, resent.Token)
	require.True(t, resent.ExpiresAt.After(issued.ExpiresAt))

	// Shortening a live invitation is rejected and keeps the current token.
	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/resend", admin, adminsdk.ResendInvitationRequest{ValidDays: 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeValidation, decodeBody[adminsdk.ErrorResponse](t, rec).Error)
	rec = h.do(t, http.MethodGet, "/register/"+resent.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/register/"+issued.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/resend", admin, adminsdk.ResendInvitationRequest{ValidDays: 91})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[adminsdk.ErrorResponse](t, rec).Fields, "valid_days")

	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/revoke", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "expired", decodeBody[adminsdk.InvitationResponse](t, rec).Status)

	rec = h.do(t, http.MethodGet, "/register/"+resent.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/invitations/01J00000000000000000000000/revoke", admin, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenCompromise(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, AllScopes...)

	rec := h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{
		Email: "guess@bakery.example",
		Role:  domain.RoleUser,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	issued := decodeBody[adminsdk.InvitationResponse](t, rec)

	for i := 0; i < int(domain.MaxAttempts); i++ {
		rec = h.do(t, http.MethodGet, "/register/"+issued.Token, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	rec = h.do(t, http.MethodGet, "/register/"+issued.Token, "", nil)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeTokenCompromised, decodeBody[adminsdk.ErrorResponse](t, rec).Error)

	rec = h.do(t, http.MethodGet, "/v1/invitations/"+issued.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[adminsdk.InvitationResponse](t, rec)
	require.True(t, view.Compromised)
	require.Equal(t, "pending", view.Status)

	// Resending clears the counter.
	rec = h.do(t, http.MethodPost, "/v1/invitations/"+issued.ID+"/resend", admin, adminsdk.ResendInvitationRequest{ValidDays: 8})
	require.Equal(t, http.StatusOK, rec.Code)
	resent := decodeBody[adminsdk.InvitationResponse](t, rec)
	require.False(t, resent.Compromised)

	rec = h.do(t, http.MethodGet, "/register/"+resent.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/invitations", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/invitations", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/invitations", h.token(t, ScopeInvitationsRead), adminsdk.IssueInvitationRequest{
		Email: "a@bakery.example",
		Role:  domain.RoleUser,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/roles", h.token(t, ScopeRolesRead), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roles := decodeBody[adminsdk.ListRolesResponse](t, rec)
	names := make([]string, 0, len(roles.Roles))
	for _, r := range roles.Roles {
		names = append(names, r.Name)
	}
	require.Subset(t, names, []string{domain.RoleAdmin, domain.RoleManager, domain.RoleStaff, domain.RoleUser})
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, AllScopes...)

	rec := h.do(t, http.MethodPost, "/v1/invitations", admin, map[string]any{"email": "x@bakery.example", "role": "user", "extra": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeInvalidRequest, decodeBody[adminsdk.ErrorResponse](t, rec).Error)

	rec = h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{Email: "nope", Role: "user"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[adminsdk.ErrorResponse](t, rec)
	require.Equal(t, adminsdk.ErrorCodeValidation, body.Error)
	require.Contains(t, body.Fields, "email")

	rec = h.do(t, http.MethodPost, "/v1/invitations", admin, adminsdk.IssueInvitationRequest{Email: "x@bakery.example", Role: "pastry-chef"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, adminsdk.ErrorCodeValidation, decodeBody[adminsdk.ErrorResponse](t, rec).Error)

	rec = h.do(t, http.MethodGet, "/v1/invitations?status=lost", admin, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/invitations?limit=0", admin, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSequences(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, ScopeSequencesWrite)

	rec := h.do(t, http.MethodPost, "/v1/sequences/order/next", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[adminsdk.SequenceNumberResponse](t, rec)
	require.Equal(t, "order", first.Kind)

	rec = h.do(t, http.MethodPost, "/v1/sequences/order/next", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[adminsdk.SequenceNumberResponse](t, rec)
	require.NotEqual(t, first.Number, second.Number)

	rec = h.do(t, http.MethodPost, "/v1/sequences/croissant/next", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[adminsdk.HealthResponse](t, rec).Status)

	rec = h.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decodeBody[adminsdk.HealthResponse](t, rec)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Attempts)

	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bakeboard_admin_http_requests_total")
}
