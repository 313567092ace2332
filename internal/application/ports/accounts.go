package ports

import (
	"context"
	"time"

	"github.com/merchantry/bulwark/internal/domain"
)

// AccountSecurityStore persists the lockout ledger slice of an account:
// failed-attempt counter, lock window, and the append-only login history.
//
// RecordFailure and RecordSuccess must be atomic read-modify-writes that hold
// across process boundaries; two concurrent failures may never both observe a
// pre-increment counter.
type AccountSecurityStore interface {
	// GetSecurity loads the security record. Returns domain
	// errors.ErrAccountNotFound when no such account exists.
	GetSecurity(ctx context.Context, id domain.AccountID) (*domain.Account, error)

	// RecordFailure atomically increments the failed-attempt counter, appends
	// a failure LoginEvent, and sets the lock window when the new counter
	// reaches maxAttempts. Returns the post-increment counter and the lock
	// expiry, if any.
	RecordFailure(ctx context.Context, id domain.AccountID, ev domain.LoginEvent, maxAttempts int, lockFor time.Duration) (attempts int, lockUntil *time.Time, err error)

	// RecordSuccess atomically resets the counter, clears the lock window,
	// stamps the last successful login, and appends a success LoginEvent.
	RecordSuccess(ctx context.Context, id domain.AccountID, ev domain.LoginEvent) error

	// ClearExpiredLock resets the counter and clears the lock window iff the
	// lock has elapsed at the given instant. Idempotent; a no-op for missing
	// accounts, active locks, and unlocked accounts.
	ClearExpiredLock(ctx context.Context, id domain.AccountID, now time.Time) error

	// Unlock unconditionally resets the counter and clears the lock window.
	Unlock(ctx context.Context, id domain.AccountID) error

	// LoginHistory returns the most recent login events, newest first.
	LoginHistory(ctx context.Context, id domain.AccountID, limit int) ([]domain.LoginEvent, error)
}
