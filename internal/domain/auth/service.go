package auth

import (
	"context"
	"time"
)

const tokenTTL = 12 * time.Hour

type Service struct {
	store  *Store
	secret string
}

func NewService(store *Store, secret string) *Service {
	return &Service{store: store, secret: secret}
}

// Login verifies credentials and mints a company-scoped access token. A
// missing user and a bad password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, AuthUser, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return "", AuthUser{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", AuthUser{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.secret, Claims{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.Role,
	}, tokenTTL)
	if err != nil {
		return "", AuthUser{}, err
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		return "", AuthUser{}, err
	}
	return token, user, nil
}
