package ports

import (
	"context"

	"github.com/merchantry/bulwark/internal/domain"
)

// Profile is the snapshot of a stored profile this subsystem reads to derive
// a principal. Extra carries pass-through fields for attribute predicates.
type Profile struct {
	ID           domain.AccountID
	Email        string
	PasswordHash string
	Admin        bool
	Seller       bool
	Verified     bool
	MFAEnabled   bool
	TOTPSecret   string
	Extra        map[string]any
}

// ProfileStore exposes the profile fields owned by the storefront's profile
// service. This subsystem reads them to derive principals and writes only
// through the narrow mutators below (sensitive operations behind step-up).
type ProfileStore interface {
	// GetProfile returns errors.ErrAccountNotFound for unknown accounts.
	GetProfile(ctx context.Context, id domain.AccountID) (*Profile, error)
	// GetProfileByEmail returns errors.ErrAccountNotFound for unknown emails.
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)

	UpdateEmail(ctx context.Context, id domain.AccountID, email string) error
	UpdatePasswordHash(ctx context.Context, id domain.AccountID, hash string) error
	Deactivate(ctx context.Context, id domain.AccountID) error
}
