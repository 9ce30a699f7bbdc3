package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/messenger-auth/internal/apperror"
	"github.com/sakif/messenger-auth/internal/auth"
)

// Route identifies one of the gateway's endpoints. RouteUnknown is the
// zero value and stands for every request the table does not match.
type Route int

const (
	RouteUnknown Route = iota
	RouteInitiate
	RouteCallback
	RouteWhoAmI
	RouteLogout
)

func (r Route) String() string {
	switch r {
	case RouteInitiate:
		return "initiate"
	case RouteCallback:
		return "callback"
	case RouteWhoAmI:
		return "whoami"
	case RouteLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// routeTable is the complete set of (method, path) pairs the gateway
// serves, relative to its mount point. Anything else falls through to
// NotFound before any handler runs.
var routeTable = []struct {
	route   Route
	method  string
	pattern string
}{
	{RouteInitiate, http.MethodGet, "/google"},
	{RouteCallback, http.MethodGet, "/callback"},
	{RouteWhoAmI, http.MethodGet, "/me"},
	{RouteLogout, http.MethodGet, "/logout"},
}

// Authenticator is the login logic the gateway drives.
// *service.AuthService implements it.
type Authenticator interface {
	AuthorizationURL() string
	LoginWithCode(ctx context.Context, code string) (auth.SessionClaims, error)
}

// AuthGateway serves the Google login flow and the session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleInitiate → redirect the browser to Google's consent screen
//   - HandleCallback → exchange the code, issue the auth_token cookie
//   - HandleMe       → return the claims of the current session
//   - HandleLogout   → clear the auth_token cookie
type AuthGateway struct {
	authenticator     Authenticator
	sessions          *auth.SessionCodec
	postLoginRedirect string
	logger            *slog.Logger
}

// NewAuthGateway creates an AuthGateway. postLoginRedirect is where the
// browser lands after login and logout; it comes from server config only,
// never from the request. Empty means "/".
func NewAuthGateway(
	authenticator Authenticator,
	sessions *auth.SessionCodec,
	postLoginRedirect string,
	logger *slog.Logger,
) *AuthGateway {
	if postLoginRedirect == "" {
		postLoginRedirect = "/"
	}
	return &AuthGateway{
		authenticator:     authenticator,
		sessions:          sessions,
		postLoginRedirect: postLoginRedirect,
		logger:            logger,
	}
}

// Routes builds the gateway's router from routeTable. Mount it under
// /auth.
//
// Unknown paths and wrong methods on known paths both answer 404; this
// gateway has no use for 405.
func (g *AuthGateway) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	for _, entry := range routeTable {
		r.Method(entry.method, entry.pattern, g.handlerFor(entry.route))
	}

	return r
}

func (g *AuthGateway) handlerFor(route Route) http.Handler {
	switch route {
	case RouteInitiate:
		return http.HandlerFunc(g.HandleInitiate)
	case RouteCallback:
		return http.HandlerFunc(g.HandleCallback)
	case RouteWhoAmI:
		return auth.RequireSession(g.sessions, g.rejectSession)(http.HandlerFunc(g.HandleMe))
	case RouteLogout:
		return http.HandlerFunc(g.HandleLogout)
	default:
		return http.HandlerFunc(NotFound)
	}
}

// rejectSession answers a request that reached a session-only route
// without a valid cookie. Every failure mode gets the same 401 body.
func (g *AuthGateway) rejectSession(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Debug("session rejected",
		slog.String("path", r.URL.Path),
		slog.String("reason", err.Error()),
	)
	writeError(w, g.logger, err)
}

// HandleInitiate redirects the browser to the provider's consent screen.
//
// HTTP: GET /auth/google
func (g *AuthGateway) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	redirect(w, g.authenticator.AuthorizationURL())
}

// HandleCallback completes the login.
//
// HTTP: GET /auth/callback?code=xxx
//
// FLOW:
//  1. Read the code (a provider ?error= means the user declined: no code)
//  2. Exchange it, upsert the user, build claims (AuthService)
//  3. Stop if the client has gone away meanwhile
//  4. Set the auth_token cookie and redirect
func (g *AuthGateway) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := query.Get("code")
	if reason := query.Get("error"); reason != "" {
		g.logger.Info("auth callback: provider returned an error",
			slog.String("route", RouteCallback.String()),
			slog.String("reason", reason),
		)
		code = ""
	}

	claims, err := g.authenticator.LoginWithCode(r.Context(), code)

	// A disconnected client gets nothing, least of all a cookie.
	if ctxErr := r.Context().Err(); ctxErr != nil {
		g.logger.Info("auth callback: request abandoned",
			slog.String("route", RouteCallback.String()),
			slog.String("reason", ctxErr.Error()),
		)
		return
	}

	if err != nil {
		writeError(w, g.logger, err)
		return
	}

	cookie, err := g.sessions.IssueCookie(claims)
	if err != nil {
		writeError(w, g.logger, err)
		return
	}

	http.SetCookie(w, cookie)
	redirect(w, g.postLoginRedirect)
}

// HandleMe returns the claims of the current session.
//
// HTTP: GET /auth/me
// Auth: RequireSession has already verified the cookie.
func (g *AuthGateway) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Only reachable if the route is registered without RequireSession.
		writeError(w, g.logger, apperror.ErrMalformedToken)
		return
	}

	writeJSON(w, http.StatusOK, claims)
}

// HandleLogout deletes the session cookie.
//
// HTTP: GET /auth/logout
//
// Tokens are stateless, so "logout" only means the browser stops sending
// the cookie. A copied token stays valid until its exp.
func (g *AuthGateway) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, g.sessions.ClearCookie())
	redirect(w, g.postLoginRedirect)
}
