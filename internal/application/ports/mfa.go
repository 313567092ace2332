package ports

import (
	"context"
	"time"
)

// MFAStateStore holds server-side proof that an account completed a second
// factor. The client-asserted MFA claim is never trusted; the principal
// deriver consults this store exclusively.
type MFAStateStore interface {
	// MarkVerified records a completed second factor for the account, valid
	// for ttl.
	MarkVerified(ctx context.Context, accountID string, ttl time.Duration) error
	// IsVerified reports whether the account has an unexpired verification.
	IsVerified(ctx context.Context, accountID string) (bool, error)
}
