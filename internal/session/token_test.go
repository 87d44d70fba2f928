package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{Subject: "reviewer-1", ExpiresAt: jwt.NewNumericDate(exp)}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestJWTToken_Valid(t *testing.T) {
	t.Parallel()

	g := session.NewGuard(false)
	raw := signed(t, time.Now().Add(time.Hour))

	tok, err := session.NewJWTToken(raw, g)
	require.NoError(t, err)
	assert.True(t, g.Authenticated(), "a fresh token authenticates the guard")

	got, err := tok.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestJWTToken_ExpiredExpiresGuard(t *testing.T) {
	t.Parallel()

	g := session.NewGuard(true)
	ch, cancel := g.Subscribe()
	defer cancel()

	tok, err := session.NewJWTToken(signed(t, time.Now().Add(-time.Minute)), g)
	require.NoError(t, err)

	_, err = tok.Token(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.False(t, g.Authenticated())
	assert.Equal(t, "token expired", (<-ch).Reason)
}

func TestJWTToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := session.NewJWTToken("not-a-jwt", session.NewGuard(true))
	assert.Error(t, err)

	_, err = session.NewJWTToken("", nil)
	assert.Error(t, err)
}

func TestMintToken(t *testing.T) {
	t.Parallel()

	raw, err := session.MintToken("secret", "reviewer-9", time.Hour)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "reviewer-9", claims.Subject)

	_, err = session.MintToken("", "x", time.Hour)
	assert.Error(t, err)
}

func TestStaticToken(t *testing.T) {
	t.Parallel()

	got, err := session.StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
