// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: every dependency is built and
// wired in New, nowhere else.
//
//	config.Config ─┬─ sqlite.DB ───────────────┐
//	               ├─ Signer → SessionCodec ───┼─ AuthService ─ AuthGateway
//	               └─ GoogleProvider ──────────┘
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/messenger-auth/internal/auth"
	"github.com/sakif/messenger-auth/internal/config"
	"github.com/sakif/messenger-auth/internal/handler"
	"github.com/sakif/messenger-auth/internal/middleware"
	sqliteRepo "github.com/sakif/messenger-auth/internal/repository/sqlite"
	"github.com/sakif/messenger-auth/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every component.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it doesn't read like the
// sqlite driver itself.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET     /auth/google    → redirect to Google
//	GET     /auth/callback  → finish login, set cookie
//	GET     /auth/me        → current session claims
//	GET     /auth/logout    → clear cookie
//	OPTIONS *               → CORS preflight (200)
//	*                       → 404 {"error":"Not found"}
//
// MIDDLEWARE ORDER (outermost first):
//  1. RequestID: unique id per request, picked up by the logs
//  2. RealIP: client IP from X-Forwarded-For / X-Real-IP
//  3. Logger: one line per request, including recovered panics
//  4. Recover: panic → 500 generic body
//  5. CORS: Allow-Origin on everything, preflight short-circuit
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recover(s.logger))
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.NotFound)

	signer := auth.NewSigner(s.config.JWTSecret)
	sessions := auth.NewSessionCodec(signer, s.config.SessionLifetime)
	google := auth.NewGoogleProvider(auth.ProviderConfig{
		ClientID:     s.config.GoogleClientID,
		ClientSecret: s.config.GoogleClientSecret,
		RedirectURL:  s.config.GoogleRedirectURL,
		AuthURL:      s.config.GoogleAuthURL,
		TokenURL:     s.config.GoogleTokenURL,
		UserInfoURL:  s.config.GoogleUserInfoURL,
		Scopes:       s.config.OAuthScopes,
		Timeout:      s.config.ProviderTimeout,
	})

	// The handler never touches the database and the service never
	// touches HTTP.
	authService := service.NewAuthService(google, s.db, sessions, s.logger)
	gateway := handler.NewAuthGateway(authService, sessions, s.config.PostLoginRedirect, s.logger)

	s.router.Mount("/auth", gateway.Routes())
}

// Handler exposes the fully wired router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Let in-flight requests finish (up to shutdownTimeout)
//  3. Close the database
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
		// WriteTimeout must cover both provider calls on /auth/callback.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*s.config.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("redirectURL", s.config.GoogleRedirectURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
