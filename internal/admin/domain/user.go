package domain

import "time"

type User struct {
	ID              string
	Name            string
	Email           string
	Username        string // Optional, lower-cased
	Phone           string // Optional, E.164
	PasswordHash    string // argon2 encoded
	EmailVerifiedAt *time.Time
	Active          bool
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
