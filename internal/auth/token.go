package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every token that cannot be trusted: malformed,
// tampered, signed with another key or algorithm, expired, or carrying a
// subject that is not a user id.
var ErrInvalidToken = errors.New("invalid token")

// Claims is what a verified token says about its bearer.
type Claims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256-signed access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of newly issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID. Every token gets a fresh random ID, so two
// issuances never produce the same string.
func (s *TokenService) Issue(userID int64) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Resolve verifies token and returns its claims, or ErrInvalidToken.
func (s *TokenService) Resolve(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &registered, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(registered.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		UserID:    userID,
		TokenID:   registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
