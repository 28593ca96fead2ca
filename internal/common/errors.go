// Package common defines shared constants and sentinel errors used across
// the client and server layers of duochat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")

	// Validation errors, detected before any remote call is made.
	ErrValidation = errors.New("validation error")

	// Identity errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProfileNotFound means authentication succeeded but no identity
	// record exists for the resulting user id. Backend inconsistency,
	// not a user error; not retryable.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrRemote wraps a backend rejection whose message is passed through
	// verbatim for display.
	ErrRemote = errors.New("remote error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
