// Package config loads the process configuration from the environment.
//
// Everything is read exactly once, in main, and handed to constructors by
// value. No other package looks at environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the server needs.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/messenger.db"`

	// JWTSecret keys the session token HMAC. Rotating it logs everyone out.
	JWTSecret string `env:"JWT_SECRET"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	GoogleAuthURL      string   `env:"GOOGLE_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	GoogleTokenURL     string   `env:"GOOGLE_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	GoogleUserInfoURL  string   `env:"GOOGLE_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v2/userinfo"`
	OAuthScopes        []string `env:"OAUTH_SCOPES" envDefault:"email,profile" envSeparator:","`

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`

	// PostLoginRedirect is where login and logout send the browser.
	// Server-side only; no request parameter can change it.
	PostLoginRedirect string `env:"POST_LOGIN_REDIRECT" envDefault:"/"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout))
	}
	if c.SessionLifetime < time.Second {
		errs = append(errs, fmt.Errorf("SESSION_LIFETIME must be at least 1s, got %s", c.SessionLifetime))
	}
	if !strings.HasPrefix(c.PostLoginRedirect, "/") || strings.HasPrefix(c.PostLoginRedirect, "//") {
		errs = append(errs, fmt.Errorf("POST_LOGIN_REDIRECT must be a local path, got %q", c.PostLoginRedirect))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Warnings lists settings that are legal but almost certainly a mistake.
// main logs them at startup.
func (c Config) Warnings() []string {
	var warnings []string
	if c.JWTSecret == "" {
		warnings = append(warnings, "JWT_SECRET is empty: session tokens are signed with an empty key")
	} else if len(c.JWTSecret) < 32 {
		warnings = append(warnings, "JWT_SECRET is shorter than 32 bytes")
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		warnings = append(warnings, "GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is empty: Google login will fail")
	}
	return warnings
}

// ParseLogLevel maps LOG_LEVEL onto a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
