package demoproxy

import (
	"net/http"
	"strings"
)

// TokenSource yields the bearer token for an inbound request.
// It returns ErrNoSession when the caller is anonymous.
type TokenSource interface {
	Token(r *http.Request) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(r *http.Request) (string, error)

// Token calls f(r).
func (f TokenSourceFunc) Token(r *http.Request) (string, error) {
	return f(r)
}

// SessionTokens reads the access token from a session cookie, falling back
// to a bearer Authorization header on the inbound request.
type SessionTokens struct {
	Cookie string
}

// Token implements TokenSource.
func (s SessionTokens) Token(r *http.Request) (string, error) {
	if s.Cookie != "" {
		if c, err := r.Cookie(s.Cookie); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}

	if token, ok := bearer(r.Header.Get("Authorization")); ok {
		return token, nil
	}
	return "", ErrNoSession
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
