package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
)

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// JWTToken serves a fixed bearer token and expires the guard once the token's
// exp claim has passed. The signature is not verified here; the service does that.
type JWTToken struct {
	guard *Guard
	now   func() time.Time

	mu      sync.RWMutex
	raw     string
	expires time.Time
}

// NewJWTToken parses raw for its expiry. Tokens without exp never expire locally.
func NewJWTToken(raw string, guard *Guard) (*JWTToken, error) {
	t := &JWTToken{guard: guard, now: time.Now}
	if err := t.Set(raw); err != nil {
		return nil, err
	}
	return t, nil
}

// Set replaces the token and re-authenticates the guard.
func (t *JWTToken) Set(raw string) error {
	expires, err := tokenExpiry(raw)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.raw = raw
	t.expires = expires
	t.mu.Unlock()

	if t.guard != nil && !t.expired() {
		t.guard.Authenticate()
	}
	return nil
}

// ExpiresAt returns the exp claim, or the zero time.
func (t *JWTToken) ExpiresAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expires
}

// Token implements TokenSource.
func (t *JWTToken) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if t.expired() {
		if t.guard != nil {
			t.guard.Expire("token expired")
		}
		return "", apperrors.ErrSessionExpired
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.raw, nil
}

func (t *JWTToken) expired() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.expires.IsZero() && !t.now().Before(t.expires)
}

func tokenExpiry(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty token")
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// StaticToken is a TokenSource for opaque tokens or no auth at all.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// MintToken signs an HS256 token for subject. It is used by development
// tooling against a service sharing the same secret.
func MintToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
