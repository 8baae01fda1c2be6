// Package common defines shared constants and sentinel errors used across
// docvault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Gateway-level errors.
	ErrorNotFound = errors.New("not found")

	// Generic/internal flow control.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input errors, reported before any remote call is issued.
	ErrorValidation    = errors.New("validation error")
	ErrorDuplicateName = errors.New("name already exists")

	// Identity errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrNoSession        = errors.New("no active session")
	ErrSignInCancelled  = errors.New("sign-in cancelled")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrProviderResponse = errors.New("identity provider error")

	// Device errors.
	ErrPermissionDenied = errors.New("permission denied")
)
