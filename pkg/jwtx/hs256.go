package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

// HS256 signs and verifies tokens with a shared secret. The admin service and
// the tooling that mints operator tokens share the secret; nothing else needs
// to verify these tokens.
type HS256 struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256{secret: secret, issuer: issuer, leeway: 30 * time.Second}, nil
}

func (h *HS256) Sign(c Claims) (string, error) {
	if c.Issuer == "" {
		c.Issuer = h.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(h.secret)
}

func (h *HS256) Verify(token string) (Claims, error) {
	var c Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(h.leeway),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := c.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	return c, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// Also covers tokens signed with a method other than HS256.
		return ErrInvalidSig
	default:
		return errors.Join(ErrMalformed, err)
	}
}
