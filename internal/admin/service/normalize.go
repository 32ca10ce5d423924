package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used for phone numbers given without a country code.
const DefaultPhoneRegion = "AU"

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 255
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	usernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,32}$`)
)

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizeUsername lower-cases an optional username. Empty stays empty.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return "", nil
	}
	if !usernamePattern.MatchString(username) {
		return "", &registrationError{field: "username", reason: "must be 3-32 characters of a-z, 0-9, dot, underscore or hyphen"}
	}
	return username, nil
}

// NormalizePhone parses an optional phone number and renders it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", &registrationError{field: "phone", reason: "is not a valid phone number"}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Registration is what a new user submits on the registration form. The
// email address always comes from the invitation.
type Registration struct {
	Name     string
	Password string
	Username string
	Phone    string
}

func (r Registration) normalize(region string) (Registration, error) {
	out := Registration{
		Name:     strings.TrimSpace(r.Name),
		Password: r.Password,
	}

	if out.Name == "" || utf8.RuneCountInString(out.Name) > maxNameLength {
		return Registration{}, &registrationError{field: "name", reason: "is required"}
	}

	n := utf8.RuneCountInString(r.Password)
	if n < minPasswordLength || n > maxPasswordLength {
		return Registration{}, &registrationError{field: "password", reason: "must be between 8 and 128 characters"}
	}

	var err error
	if out.Username, err = NormalizeUsername(r.Username); err != nil {
		return Registration{}, err
	}
	if out.Phone, err = NormalizePhone(r.Phone, region); err != nil {
		return Registration{}, err
	}
	return out, nil
}
