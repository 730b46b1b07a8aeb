package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realgarit/intuneup/pkg/errors"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "token")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "token")

	if got := req.Header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Expected Authorization header 'Bearer token', got '%s'", got)
	}
}

func TestStaticTokenRequired(t *testing.T) {
	_, err := NewStaticToken("  ").Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTokenRequired)
	assert.True(t, errors.IsAuthError(err))

	var nilSource *StaticToken
	_, err = nilSource.Token(context.Background())
	assert.ErrorIs(t, err, errors.ErrTokenRequired)
}

func TestStaticTokenOpaque(t *testing.T) {
	token, err := NewStaticToken("Bearer opaque-token").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)
}

func TestStaticTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	src := NewStaticToken(valid)
	src.now = func() time.Time { return now }
	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valid, token)

	expired := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	src = NewStaticToken(expired)
	src.now = func() time.Time { return now }
	_, err = src.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)

	var authErr *errors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "2026-03-01T11:59:00Z")
}

func TestExpiry(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Expiry(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	got, err = Expiry(signedToken(t, jwt.MapClaims{"sub": "x"}))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = Expiry("not-a-jwt")
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
