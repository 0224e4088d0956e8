package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postboard/internal/auth"
	"postboard/internal/domain"
)

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
	Resolve(token string) (auth.Claims, error)
}

// AccessToken is the result of a successful password grant.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Session is an authenticated request's view of its bearer.
type Session struct {
	User   *domain.User
	Claims auth.Claims
}

// AuthService runs the password grant and resolves bearer tokens to users.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*AccessToken, error)
	Authenticate(ctx context.Context, token string) (*Session, error)
	Logout(ctx context.Context, session *Session) error
}

type authService struct {
	users   UserService
	tokens  TokenIssuer
	revoker auth.Revoker
}

func NewAuthService(users UserService, tokens TokenIssuer, revoker auth.Revoker) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*AccessToken, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AccessToken{Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves token to the active user it was issued for.
// Storage or revocation-list failures are returned as-is; everything else is
// ErrUnauthenticated.
func (s *authService) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if s.revoker != nil && claims.TokenID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrUnauthenticated
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if user.Disabled {
		return nil, ErrUnauthenticated
	}

	return &Session{User: user, Claims: claims}, nil
}

func (s *authService) Logout(ctx context.Context, session *Session) error {
	if s.revoker == nil || session == nil || session.Claims.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, session.Claims.TokenID, session.Claims.ExpiresAt)
}
