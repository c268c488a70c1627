// Package common defines shared constants and sentinel errors used across
// client and server layers of Corkboard. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Relay errors.
	ErrNotJoined    = errors.New("connection has not joined a room")
	ErrRelayClosed  = errors.New("relay connection closed")
	ErrUnknownEvent = errors.New("unknown event type")
)
