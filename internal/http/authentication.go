package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/meeting-scheduler/internal/auth"
)

// APIKeyHeader carries machine credentials of the form "<id>.<secret>".
const APIKeyHeader = "X-API-Key"

var errNoCredentials = errors.New("no credentials presented")

type tokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type keyVerifier interface {
	Verify(presented string) (auth.Identity, error)
}

// Authenticator resolves the caller of a request from a bearer token or an
// API key. Either verifier may be nil when that scheme is disabled.
type Authenticator struct {
	Tokens tokenVerifier
	Keys   keyVerifier
}

// Identify verifies the credentials attached to r. A bearer token takes
// precedence over an API key.
func (a Authenticator) Identify(r *http.Request) (auth.Identity, error) {
	if token, ok := bearerToken(r); ok {
		if a.Tokens == nil {
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return a.Tokens.Verify(token)
	}
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		if a.Keys == nil {
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return a.Keys.Verify(key)
	}
	return auth.Identity{}, errNoCredentials
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
