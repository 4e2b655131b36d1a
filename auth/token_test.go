package auth_test

import (
	"testing"
	"time"

	"github.com/ecomlab/shoplt/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_static(t *testing.T) {
	tok, err := auth.Token(auth.Flags{Token: "abc", Secret: "secret"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestToken_minted(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	tok, err := auth.Token(auth.Flags{Secret: "secret", Subject: "testuser"}, now)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(tok, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	assert.Equal(t, "testuser", claims.Subject)
	assert.WithinDuration(t, now, claims.IssuedAt.Time, time.Second)
	assert.WithinDuration(t, now.Add(auth.DefaultTTL), claims.ExpiresAt.Time, time.Second)

	_, err = jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}

func TestToken_noSecret(t *testing.T) {
	_, err := auth.Token(auth.Flags{}, time.Now())
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}
