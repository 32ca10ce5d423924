package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/attempts"
	"github.com/aussiebroadwan/bakeboard/internal/admin/metrics"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"

	_ "github.com/aussiebroadwan/bakeboard/api/admin" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Scopes understood by the admin API.
const (
	ScopeInvitationsRead  = "invitations:read"
	ScopeInvitationsWrite = "invitations:write"
	ScopeRolesRead        = "roles:read"
	ScopeUsersRead        = "users:read"
	ScopeSequencesWrite   = "sequences:write"
)

// AllScopes lists every scope, for operator tokens.
var AllScopes = []string{
	ScopeInvitationsRead,
	ScopeInvitationsWrite,
	ScopeRolesRead,
	ScopeUsersRead,
	ScopeSequencesWrite,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.Limits

	store   store.Store
	counter attempts.Counter
	metrics bool
	swagger bool

	InvitationService *service.InvitationService
	NumberingService  *service.NumberingService
	RolesService      *service.RolesService
	UserService       *service.UserService
}

// Option tweaks a Router at construction.
type Option func(*Router)

// WithLimits replaces the default rate limit profiles.
func WithLimits(l httpx.Limits) Option { return func(r *Router) { r.limits = l } }

// WithMetrics exposes /metrics and records HTTP metrics.
func WithMetrics() Option { return func(r *Router) { r.metrics = true } }

// WithSwagger serves the API docs under /swagger/.
func WithSwagger() Option { return func(r *Router) { r.swagger = true } }

// WithAttemptCounter lets /readyz check the attempt counter backend.
func WithAttemptCounter(c attempts.Counter) Option { return func(r *Router) { r.counter = c } }

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		limits:       httpx.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Registration tokens travel in the path and must not be logged.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, "/register/"),
	}
	if r.metrics {
		r.middlewares = append(r.middlewares, metrics.InstrumentHandler)
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerInvitations()
	r.registerRegistration()
	r.registerDirectory()
	r.registerSequences()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Bakeboard Admin Service API
//	@version		0.1.0
//	@description	Staff invitations, token based onboarding and reference numbering for the bakeboard business app.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/bakeboard
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				HS256 operator token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured chains authentication, scope enforcement and the per-user limit.
func (r *Router) secured(h http.Handler, scope string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(scope),
		httpx.RateLimitByUser(r.limits.Moderate),
	)
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{Service: r.InvitationService}

	r.Mux.Handle("POST /v1/invitations", r.secured(http.HandlerFunc(h.HandleIssue), ScopeInvitationsWrite))
	r.Mux.Handle("GET /v1/invitations", r.secured(http.HandlerFunc(h.HandleList), ScopeInvitationsRead))
	r.Mux.Handle("GET /v1/invitations/{id}", r.secured(http.HandlerFunc(h.HandleGet), ScopeInvitationsRead))
	r.Mux.Handle("POST /v1/invitations/{id}/resend", r.secured(http.HandlerFunc(h.HandleResend), ScopeInvitationsWrite))
	r.Mux.Handle("POST /v1/invitations/{id}/revoke", r.secured(http.HandlerFunc(h.HandleRevoke), ScopeInvitationsWrite))
}

func (r *Router) registerRegistration() {
	h := &RegistrationHandler{Service: r.InvitationService, Users: r.UserService}

	// GET loads the form; every call counts as a token probe
	r.Mux.Handle("GET /register/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	// POST creates the account - strict limit by IP
	r.Mux.Handle("POST /register/{token}",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
}

func (r *Router) registerDirectory() {
	roles := &RolesHandler{RolesService: r.RolesService}
	users := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /v1/roles", r.secured(roles, ScopeRolesRead))
	r.Mux.Handle("GET /v1/users/{id}", r.secured(users, ScopeUsersRead))
}

func (r *Router) registerSequences() {
	h := &SequencesHandler{Service: r.NumberingService}
	r.Mux.Handle("POST /v1/sequences/{kind}/next", r.secured(h, ScopeSequencesWrite))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.counter),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	if r.metrics {
		r.Mux.Handle("GET /metrics", metrics.Handler())
	}
	if r.swagger {
		r.Mux.Handle("/swagger/", httpSwagger.Handler())
	}
}
