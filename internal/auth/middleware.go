package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sakif/messenger-auth/internal/apperror"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the claims value.
type contextKey string

const claimsKey contextKey = "sessionClaims"

// RejectFunc writes the response for a request without a valid session.
// err always satisfies apperror.IsUnauthenticated.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireSession is a middleware that enforces a valid session cookie.
//
// It reads the auth_token cookie, verifies it, and stores the claims in the
// request context. If the cookie is missing or invalid it calls reject and
// stops the chain; the caller decides what the 401 looks like.
func RequireSession(sessions *SessionCodec, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessions.ReadCookie(cookieHeader(r))
			if err == nil && claims == nil {
				err = fmt.Errorf("auth: no %s cookie: %w", CookieName, apperror.ErrNoSession)
			}
			if err != nil {
				reject(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the session claims stored by RequireSession.
//
// Usage in handlers:
//
//	claims, ok := auth.ClaimsFromContext(r.Context())
//	if !ok {
//	    // route was not wrapped in RequireSession
//	}
func ClaimsFromContext(ctx context.Context) (SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(SessionClaims)
	return claims, ok
}

// cookieHeader joins every Cookie header on the request. HTTP/2 clients may
// split cookies across several header fields.
func cookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}
