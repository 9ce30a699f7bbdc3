// Package apperror defines the error taxonomy shared by the auth subsystem.
//
// Every failure that can reach a client is one of the sentinels below. The
// HTTP layer maps sentinels to status codes; services and the auth package
// only ever return (wrapped) sentinels or AppErrors carrying one.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// Callback failures (400).
	ErrMissingCode         = errors.New("missing authorization code")
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrProfileFetchFailed  = errors.New("profile fetch failed")

	// Session failures (all surface as the same 401).
	ErrNoSession        = errors.New("no session cookie")
	ErrMalformedToken   = errors.New("malformed token")
	ErrBadSignature     = errors.New("bad signature")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrExpired          = errors.New("token expired")

	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // short reason returned to the client
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// MissingCode is returned when the callback arrives without a ?code=.
func MissingCode() *AppError {
	return &AppError{
		Err:     ErrMissingCode,
		Message: "Authorization code not provided",
	}
}

// TokenExchangeFailed wraps the underlying provider error so it can be
// logged; the client only ever sees Message.
func TokenExchangeFailed(cause error) error {
	return fmt.Errorf("%w: %w", &AppError{
		Err:     ErrTokenExchangeFailed,
		Message: "Failed to get access token",
	}, cause)
}

func ProfileFetchFailed(cause error) error {
	return fmt.Errorf("%w: %w", &AppError{
		Err:     ErrProfileFetchFailed,
		Message: "Failed to get user profile",
	}, cause)
}

// IsUnauthenticated reports whether err means "no valid session": the
// cookie is absent or its token failed verification.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrExpired)
}
