package services

import (
	"context"
	"crypto/subtle"
	"time"

	"agriregistration/internal/domain"
)

const adminTokenExpiry = 24 * time.Hour

type authService struct {
	adminEmail        string
	adminPasswordHash string
	adminPasswordSalt string
	hasher            domain.PasswordHasher
	issuer            domain.TokenIssuer
}

// NewAuthService creates an AuthService that authenticates the single
// dashboard operator configured from the environment.
func NewAuthService(adminEmail, adminPasswordHash, adminPasswordSalt string, hasher domain.PasswordHasher, issuer domain.TokenIssuer) domain.AuthService {
	return &authService{
		adminEmail:        domain.NormalizeEmail(adminEmail),
		adminPasswordHash: adminPasswordHash,
		adminPasswordSalt: adminPasswordSalt,
		hasher:            hasher,
		issuer:            issuer,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	if s.adminEmail == "" || s.adminPasswordHash == "" {
		return "", domain.ErrInvalidCredentials
	}

	email = domain.NormalizeEmail(email)
	if subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) != 1 {
		return "", domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(s.adminPasswordHash, s.adminPasswordSalt, password); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue("admin", email, adminTokenExpiry)
	if err != nil {
		return "", err
	}
	return token, nil
}
