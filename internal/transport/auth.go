package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/realgarit/intuneup/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {
	// No authentication applied
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// TokenSource yields the access token for a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a pre-acquired access token. Acquiring tokens is left to
// the caller (az cli, a pipeline secret, ...).
type StaticToken struct {
	Value string

	// now is overridable for tests.
	now func() time.Time
}

// NewStaticToken returns a token source for value.
func NewStaticToken(value string) *StaticToken {
	return &StaticToken{Value: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "Bearer "))}
}

// Token implements TokenSource. A JWT whose exp claim lies in the past is
// rejected before it reaches the wire. The signature is not verified; that
// is the server's job.
func (s *StaticToken) Token(_ context.Context) (string, error) {
	if s == nil || s.Value == "" {
		return "", &errors.AuthenticationError{
			Service: "graph",
			Method:  "bearer",
			Message: "no access token configured",
			Err:     errors.ErrTokenRequired,
		}
	}

	exp, err := Expiry(s.Value)
	if err != nil || exp.IsZero() {
		// Opaque tokens are passed through as-is.
		return s.Value, nil
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if !now().Before(exp) {
		return "", &errors.AuthenticationError{
			Service: "graph",
			Method:  "bearer",
			Message: "access token expired at " + exp.UTC().Format(time.RFC3339),
			Err:     errors.ErrTokenExpired,
		}
	}
	return s.Value, nil
}

// Expiry returns the exp claim of a JWT without verifying it. A token with
// no exp claim yields the zero time.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.WrapParse("jwt", "access token", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.WrapParse("jwt", "exp claim", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
