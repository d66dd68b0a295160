// Package common defines shared sentinel errors and small helpers used across
// the sign-up service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal           = errors.New("internal error")
	ErrorStorageUnavailable = errors.New("storage unavailable")

	// Registration errors.
	ErrorCapacityExceeded = errors.New("all places are already taken")
	ErrorDuplicateEmail   = errors.New("this e-mail address is already registered")

	// Auth and session errors.
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorSessionExpired     = errors.New("session expired")
	ErrorCSRFMismatch       = errors.New("invalid security token")
	ErrorInvalidToken       = errors.New("invalid token")

	// Admin input errors.
	ErrorInvalidID            = errors.New("invalid participant id")
	ErrorConfirmationMismatch = errors.New("confirmation phrase does not match")

	// Export errors.
	ErrorUnsupportedFormat = errors.New("unsupported export format")

	// Notification errors. Never fatal for the triggering operation.
	ErrorNotificationFailed = errors.New("confirmation e-mail could not be sent")
)
