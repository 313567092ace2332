package errors

import "errors"

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAssertionInvalid   = errors.New("invalid or expired credential")
	ErrStoreUnavailable   = errors.New("account store unavailable")
)
