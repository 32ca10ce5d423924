package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultOperatorTTL is the lifetime of tokens minted for operators and
// integrations calling the admin API.
const DefaultOperatorTTL = 12 * time.Hour

// Claims carried by admin API bearer tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Display name of the caller; used as the invitation sender name.
	Name string `json:"name,omitempty"`

	// Permission scopes, e.g. "invitations:write".
	Scopes []string `json:"scopes,omitempty"`
}

// NewClaims builds claims for subject valid from now for ttl.
func NewClaims(subject, name string, scopes []string, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Name:   name,
		Scopes: scopes,
	}
}

func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether scope was granted.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}
