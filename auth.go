package bustracker

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// Authenticator decides whether a request may use the protected endpoints
// (ingest, chat, history) and identifies the caller for attribution.
//
// Implementations must be safe for concurrent use. Returning an error
// rejects the request with 401; the returned userID is attached to
// persisted fixes and chat exchanges.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, err error)
}

// ErrUnauthorized is returned by the built-in authenticators when the
// request carries missing or wrong credentials.
var ErrUnauthorized = errors.New("unauthorized")

// allowAll admits every request under a shared anonymous identity. It is
// the default when no authenticator is configured.
type allowAll struct{}

func (allowAll) Authenticate(*http.Request) (string, error) { return "anonymous", nil }

// TokenAuthenticator admits requests presenting a static bearer token.
type TokenAuthenticator struct {
	token string
}

// NewTokenAuthenticator creates an authenticator requiring
// "Authorization: Bearer <token>" on protected endpoints.
func NewTokenAuthenticator(token string) *TokenAuthenticator {
	return &TokenAuthenticator{token: token}
}

// Authenticate checks the bearer token with a constant-time comparison.
// Authenticated callers all share the "device" identity; per-user identity
// is the concern of a real identity provider.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	raw := r.Header.Get("Authorization")
	got, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok {
		return "", ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
		return "", ErrUnauthorized
	}
	return "device", nil
}
