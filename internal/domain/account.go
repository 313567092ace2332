package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountID is a value object for account identity.
type AccountID struct{ uuid.UUID }

// NewAccountID creates a new AccountID from uuid.
func NewAccountID(id uuid.UUID) AccountID { return AccountID{UUID: id} }

// ParseAccountID parses the canonical string form.
func ParseAccountID(s string) (AccountID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID{UUID: id}, nil
}

// String returns the canonical string form.
func (a AccountID) String() string { return a.UUID.String() }

// LoginOutcome is the result of a single login attempt.
type LoginOutcome string

const (
	LoginSuccess LoginOutcome = "success"
	LoginFailure LoginOutcome = "failure"
)

// LoginEvent is one entry in an account's append-only login history.
type LoginEvent struct {
	At        time.Time
	Outcome   LoginOutcome
	Source    string
	UserAgent string
}

// Account is the security-relevant slice of an account record. The rest of
// the profile (addresses, payment methods, storefront data) belongs to other
// services and is never read or written here.
type Account struct {
	ID                  AccountID
	Email               string
	FailedAttempts      int
	LockUntil           *time.Time
	LastSuccessfulLogin *time.Time
	LastFailedLogin     *time.Time
}

// Locked reports whether the account is locked at the given instant.
func (a *Account) Locked(now time.Time) bool {
	return a.LockUntil != nil && now.Before(*a.LockUntil)
}
