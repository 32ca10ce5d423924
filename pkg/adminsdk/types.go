package adminsdk

import "time"

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the JSON body of every error returned by the service.
type ErrorResponse struct {
	// Error is the machine readable code (e.g. "invitation_expired")
	Error string `json:"error"`

	// ErrorDescription is a human readable explanation
	ErrorDescription string `json:"error_description,omitempty"`

	// Fields maps request fields to validation messages (validation_error only)
	Fields map[string]string `json:"fields,omitempty"`
}

// ============================================================================
// Invitations
// ============================================================================

// IssueInvitationRequest is the body of POST /v1/invitations.
type IssueInvitationRequest struct {
	Email string `json:"email"                validate:"required,email,max=254"`
	Role  string `json:"role"                 validate:"required,max=64"`

	// ValidDays overrides the default validity window (1-90, 0 = default)
	ValidDays int `json:"valid_days,omitempty" validate:"gte=0,lte=90"`
}

// ResendInvitationRequest is the optional body of POST /v1/invitations/{id}/resend.
type ResendInvitationRequest struct {
	ValidDays int `json:"valid_days,omitempty" validate:"gte=0,lte=90"`
}

// InvitationResponse describes one invitation. Token and RegistrationLink are
// only present in the responses of issue and resend; the service does not
// keep the raw token.
type InvitationResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	SentBy string `json:"sent_by"`

	// Status is one of pending, expired or accepted
	Status string `json:"status"`

	// Compromised is true when the token was probed too often. It is
	// reported separately from Status.
	Compromised bool  `json:"compromised"`
	Attempts    int64 `json:"attempts"`

	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Token            string `json:"token,omitempty"`
	RegistrationLink string `json:"registration_link,omitempty"`
}

// ListInvitationsResponse is returned by GET /v1/invitations.
type ListInvitationsResponse struct {
	Invitations []InvitationResponse `json:"invitations"`
}

// ListInvitationsParams narrows GET /v1/invitations. Zero values are omitted.
type ListInvitationsParams struct {
	Status string
	Email  string
	Limit  int
}

// ============================================================================
// Registration
// ============================================================================

// RegistrationInfo is what the registration page shows before the form is
// submitted.
type RegistrationInfo struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRequest is the body of POST /register/{token}. The account email is
// taken from the invitation.
type RegisterRequest struct {
	Name     string `json:"name"               validate:"required,max=255"`
	Password string `json:"password"           validate:"required,min=8,max=128"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=32"`
	Phone    string `json:"phone,omitempty"    validate:"omitempty,max=32"`
}

// RegisterResponse is returned once the account exists.
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// ============================================================================
// Roles and users
// ============================================================================

type RoleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ListRolesResponse struct {
	Roles []RoleInfo `json:"roles"`
}

type UserResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Username        string     `json:"username,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Active          bool       `json:"active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Roles           []string   `json:"roles"`
}

// ============================================================================
// Sequences
// ============================================================================

// SequenceNumberResponse is returned by POST /v1/sequences/{kind}/next.
type SequenceNumberResponse struct {
	Number   string    `json:"number"`
	Kind     string    `json:"kind"`
	IssuedAt time.Time `json:"issued_at"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of the service's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Attempts string `json:"attempts"`
}
