package security

import "github.com/pquerna/otp/totp"

// TOTPVerifier validates 6-digit TOTP codes against a stored secret.
type TOTPVerifier struct{}

func NewTOTPVerifier() *TOTPVerifier { return &TOTPVerifier{} }

// Validate reports whether code matches the secret within the standard
// 30-second window.
func (TOTPVerifier) Validate(code, secret string) bool {
	return totp.Validate(code, secret)
}
