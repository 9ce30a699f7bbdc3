package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/messenger-auth/internal/model"
)

// CookieName is the cookie that carries the session token.
const CookieName = "auth_token"

// DefaultSessionLifetime is how long a session lasts: 30 days.
const DefaultSessionLifetime = 30 * 24 * time.Hour

// SessionCodec turns SessionClaims into the auth_token cookie and back.
//
// Both the cookie's Max-Age and the claims' exp come from the same lifetime
// field, so neither can outlive the other.
type SessionCodec struct {
	signer   *Signer
	lifetime time.Duration
}

// NewSessionCodec creates a SessionCodec. A non-positive lifetime falls back
// to DefaultSessionLifetime.
func NewSessionCodec(signer *Signer, lifetime time.Duration) *SessionCodec {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionCodec{signer: signer, lifetime: lifetime}
}

// NewClaims builds the claims for a freshly logged-in user, expiring one
// lifetime from now.
func (c *SessionCodec) NewClaims(user *model.User) SessionClaims {
	return SessionClaims{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Avatar: user.Avatar,
		Exp:    c.signer.now().Add(c.lifetime).Unix(),
	}
}

// IssueCookie signs claims and wraps the token in the session cookie.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: JavaScript can't read it (XSS can't steal the session)
//   - Secure: only sent over HTTPS
//   - SameSite=Strict: never sent on cross-site requests
//   - Path=/: sent to every route on the site
func (c *SessionCodec) IssueCookie(claims SessionClaims) (*http.Cookie, error) {
	token, err := c.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("auth: issuing session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.lifetime / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// ClearCookie returns a cookie with the same name, path and attributes as
// the session cookie but Max-Age=0, which makes the browser drop it.
//
// net/http renders MaxAge<0 as "Max-Age=0"; MaxAge==0 would omit the
// attribute entirely.
func (c *SessionCodec) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ReadCookie extracts the session from a raw Cookie request header.
//
// Returns (nil, nil) when there is no auth_token cookie at all: an
// anonymous request is a normal outcome, not a failure. A present but
// invalid token returns the Signer's error.
func (c *SessionCodec) ReadCookie(cookieHeader string) (*SessionClaims, error) {
	token, ok := findCookie(cookieHeader, CookieName)
	if !ok {
		return nil, nil
	}

	claims, err := c.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// findCookie scans a "name=value; name2=value2" header for the first pair
// named name. Whitespace around each pair is trimmed before comparing.
func findCookie(header, name string) (string, bool) {
	for _, pair := range strings.Split(header, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
		if found && k == name {
			return v, true
		}
	}
	return "", false
}
