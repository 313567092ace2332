package stepup

// Code is a stable, client-distinguishable step-up error code.
type Code string

const (
	CodeAuthRequired            Code = "AUTH_REQUIRED"
	CodeFreshAuthRequired       Code = "FRESH_AUTH_REQUIRED"
	CodeRecentAuthRequired      Code = "RECENT_AUTH_REQUIRED"
	CodeCurrentPasswordRequired Code = "CURRENT_PASSWORD_REQUIRED"
	CodeUnsupportedProvider     Code = "UNSUPPORTED_PROVIDER"
)

// Error is a step-up denial with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrAuthRequired = &Error{
		Code:    CodeAuthRequired,
		Message: "authentication required",
	}
	ErrFreshAuthRequired = &Error{
		Code:    CodeFreshAuthRequired,
		Message: "please re-authenticate with your identity provider",
	}
	ErrRecentAuthRequired = &Error{
		Code:    CodeRecentAuthRequired,
		Message: "recent authentication required; sign in again",
	}
	ErrCurrentPasswordRequired = &Error{
		Code:    CodeCurrentPasswordRequired,
		Message: "current password required",
	}
	ErrUnsupportedProvider = &Error{
		Code:    CodeUnsupportedProvider,
		Message: "re-authentication is not supported for this sign-in method",
	}
)
