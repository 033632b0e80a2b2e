// Package common defines shared constants and sentinel errors used across
// client and server layers of Recipe Lab. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Content rejected by schema validation; never partially stored.
	ErrValidation = errors.New("validation error")

	// Session errors.
	ErrSignOutDenied   = errors.New("sign-out denied: anonymous session would lose all local data")
	ErrCredentialInUse = errors.New("credential already in use")
	ErrNoSession       = errors.New("no active session")

	// Service-level errors.
	ErrInternal          = errors.New("internal error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("remote unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSelfAction        = errors.New("action not allowed on self")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
