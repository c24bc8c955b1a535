package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrInvalidCredentials is returned for any failed login. The cause is
	// deliberately not distinguished.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrTokenInvalid rejects a missing, expired or unknown session token.
	ErrTokenInvalid = errors.New("auth: invalid session token")
)
