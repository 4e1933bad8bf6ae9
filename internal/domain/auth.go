package domain

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned when an admin login attempt fails.
var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated admin operator.
type TokenIssuer interface {
	Issue(subject, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated subject.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

// AuthService authenticates the dashboard operator.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, err error)
}
