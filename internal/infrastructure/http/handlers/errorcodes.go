package handlers

// Stable API error codes returned in JSON { "error": "...", "code": "..." }.
// Clients branch on the code; the message is for humans only.
const (
	ErrCodeAuthRequired            = "AUTH_REQUIRED"
	ErrCodeFreshAuthRequired       = "FRESH_AUTH_REQUIRED"
	ErrCodeRecentAuthRequired      = "RECENT_AUTH_REQUIRED"
	ErrCodeCurrentPasswordRequired = "CURRENT_PASSWORD_REQUIRED"
	ErrCodeUnsupportedProvider     = "UNSUPPORTED_PROVIDER"
	ErrCodeAccountLocked           = "ACCOUNT_LOCKED"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeNotAuthorized           = "NOT_AUTHORIZED"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeMFACodeInvalid          = "MFA_CODE_INVALID"
	ErrCodeMFANotEnrolled          = "MFA_NOT_ENROLLED"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeUnavailable             = "UNAVAILABLE"
	ErrCodeInternal                = "INTERNAL_ERROR"
)
