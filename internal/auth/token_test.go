package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", "postboard", time.Minute)

	token, expiresAt, err := svc.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	claims, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.NotEmpty(t, claims.TokenID)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewTokenService("secret", "postboard", time.Minute)
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, _, err := svc.Issue(1)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestResolveRejects(t *testing.T) {
	svc := NewTokenService("secret", "postboard", time.Minute)
	valid, _, err := svc.Issue(7)
	require.NoError(t, err)

	expired := NewTokenService("secret", "postboard", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue(7)
	require.NoError(t, err)

	otherKey, _, err := NewTokenService("other", "postboard", time.Minute).Issue(7)
	require.NoError(t, err)

	otherIssuer, _, err := NewTokenService("secret", "someone-else", time.Minute).Issue(7)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "7",
		Issuer:    "postboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "postboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "7",
		Issuer:  "postboard",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "invalidtoken123",
		"expired":        old,
		"other key":      otherKey,
		"other issuer":   otherIssuer,
		"tampered":       tampered,
		"alg none":       none,
		"non-numeric id": badSubject,
		"no expiry":      noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Resolve(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
