// Package auth provides bearer tokens for simulated users.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is a lifetime of minted tokens.
const DefaultTTL = 10 * time.Hour

// ErrNoSecret is returned when neither static token nor signing secret is available.
var ErrNoSecret = errors.New("auth: token or jwt secret required")

// Flags control token source.
type Flags struct {
	// Token is used as is when not empty.
	Token string

	Secret  string
	Subject string
	TTL     time.Duration
}

// Token returns static token or mints HS256 JWT valid from now.
func Token(f Flags, now time.Time) (string, error) {
	if f.Token != "" {
		return f.Token, nil
	}

	if f.Secret == "" {
		return "", ErrNoSecret
	}

	ttl := f.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	claims := jwt.RegisteredClaims{
		Subject:   f.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(f.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}
