package ports

import (
	"context"

	"github.com/merchantry/bulwark/internal/domain"
)

// AssertionVerifier parses and validates a bearer credential minted by the
// external identity provider, extracting the three fields this subsystem
// interprets: subject, issue time, and provider.
type AssertionVerifier interface {
	Verify(token string) (*domain.Assertion, error)
}

// IdentityProvider is the external collaborator that checks primary
// credentials and mints bearer tokens. Must return domain
// errors.ErrInvalidCredentials on mismatch so callers can keep failure
// responses generic.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (token string, err error)
}

// PasswordVerifier checks a cleartext password against a stored hash.
// Hashing parameters and storage belong to the profile service; this
// subsystem only verifies during password-provider step-up.
type PasswordVerifier interface {
	Verify(password, encodedHash string) bool
}

// PasswordHasher produces a new hash for the change-password flow.
type PasswordHasher interface {
	PasswordVerifier
	Hash(password string) (string, error)
}
