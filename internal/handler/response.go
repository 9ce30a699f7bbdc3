package handler

// RESPONSE HELPERS:
// Every JSON response from the gateway goes through writeJSON, and every
// failure goes through writeError. That keeps the error body identical
// everywhere:
//
//	{"error": "Authorization code not provided"}
//
// The frontend only ever has to look at one field.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/messenger-auth/internal/apperror"
)

// Client-facing messages for errors that carry no AppError of their own.
const (
	msgNotAuthenticated = "Not authenticated"
	msgNotFound         = "Not found"
	msgInternal         = "Internal server error"
)

// ErrorResponse is the error body returned by every failing route.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body: once Encode writes,
// the headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrMissingCode, ErrTokenExchangeFailed,
//	ErrProfileFetchFailed                    → 400 + AppError.Message
//	no cookie or any verification failure    → 401 "Not authenticated"
//	ErrNotFound                              → 404 "Not found"
//	anything else                            → 500 "Internal server error"
//
// The 401 message is the same for every verification failure, so a client
// cannot tell an expired token from a forged one. For 500s the real error is
// logged and never echoed.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperror.ErrMissingCode),
		errors.Is(err, apperror.ErrTokenExchangeFailed),
		errors.Is(err, apperror.ErrProfileFetchFailed):
		logger.Warn("login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: clientMessage(err)})

	case apperror.IsUnauthenticated(err):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: msgNotAuthenticated})

	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: msgNotFound})

	default:
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	}
}

// clientMessage pulls the short reason out of the first AppError in the
// chain. Only the Message is used; the wrapped cause stays in the logs.
func clientMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return msgInternal
}

// redirect answers 302 with a Location header and an empty body.
// http.Redirect is not used because it writes a small HTML body for GETs.
func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

// NotFound answers 404 {"error":"Not found"}. The server uses it for both
// unknown paths and known paths with the wrong method.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, slog.Default(), apperror.ErrNotFound)
}
