// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP gateway and the provider/store/session
// pieces:
//
//	AuthGateway (HTTP) → AuthService → IdentityProvider (Google)
//	                                 ↘ UserRepository (DB)
//	                                 ↘ SessionCodec (claims)
//
// It never touches http.Request or cookies; the gateway owns those.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/messenger-auth/internal/apperror"
	"github.com/sakif/messenger-auth/internal/auth"
	"github.com/sakif/messenger-auth/internal/model"
	"github.com/sakif/messenger-auth/internal/repository"
)

// IdentityProvider is the OAuth2 client the login flow needs.
// *auth.GoogleProvider implements it.
type IdentityProvider interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (*model.Identity, error)
}

var _ IdentityProvider = (*auth.GoogleProvider)(nil)

// AuthService handles the login business logic.
type AuthService struct {
	provider IdentityProvider
	users    repository.UserRepository
	sessions *auth.SessionCodec
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	provider IdentityProvider,
	users repository.UserRepository,
	sessions *auth.SessionCodec,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		provider: provider,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// AuthorizationURL returns where to send the browser to start a login.
func (s *AuthService) AuthorizationURL() string {
	return s.provider.AuthURL()
}

// LoginWithCode completes the OAuth callback:
//
//  1. Exchange the code for the provider identity
//  2. Upsert the user (create on first login, refresh profile afterwards)
//  3. Build fresh SessionClaims from the stored user record
//
// The caller turns the claims into a cookie. Errors keep their apperror
// sentinel so the gateway can pick the status code.
func (s *AuthService) LoginWithCode(ctx context.Context, code string) (auth.SessionClaims, error) {
	if code == "" {
		return auth.SessionClaims{}, apperror.MissingCode()
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return auth.SessionClaims{}, fmt.Errorf("service/auth: %w", err)
	}

	user, err := s.users.Upsert(ctx, *identity)
	if err != nil {
		return auth.SessionClaims{}, fmt.Errorf("service/auth: upserting user (providerID=%s): %w", identity.ProviderID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.sessions.NewClaims(user), nil
}
