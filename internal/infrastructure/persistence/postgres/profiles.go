package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

const (
	getProfileSQL = `SELECT id, email, password_hash, is_admin, is_seller, is_verified, mfa_enabled, COALESCE(totp_secret, '')
FROM profiles WHERE id = $1 AND deactivated_at IS NULL`

	getProfileByEmailSQL = `SELECT id, email, password_hash, is_admin, is_seller, is_verified, mfa_enabled, COALESCE(totp_secret, '')
FROM profiles WHERE email = $1 AND deactivated_at IS NULL`

	updateEmailSQL       = `UPDATE profiles SET email = $2, updated_at = NOW() WHERE id = $1`
	updatePasswordSQL    = `UPDATE profiles SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	deactivateProfileSQL = `UPDATE profiles SET deactivated_at = NOW() WHERE id = $1 AND deactivated_at IS NULL`
)

// ProfileStore implements ports.ProfileStore on the storefront's profiles
// table. Only the security-relevant columns are touched; the rest of the
// profile schema belongs to other services.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) GetProfile(ctx context.Context, id domain.AccountID) (*ports.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, getProfileSQL, id.UUID))
}

func (s *ProfileStore) GetProfileByEmail(ctx context.Context, email string) (*ports.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, getProfileByEmailSQL, email))
}

func (s *ProfileStore) scanProfile(row pgx.Row) (*ports.Profile, error) {
	var p ports.Profile
	var id [16]byte
	err := row.Scan(&id, &p.Email, &p.PasswordHash, &p.Admin, &p.Seller, &p.Verified, &p.MFAEnabled, &p.TOTPSecret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domerrors.ErrAccountNotFound
		}
		return nil, err
	}
	p.ID = domain.NewAccountID(uuid.UUID(id))
	return &p, nil
}

func (s *ProfileStore) UpdateEmail(ctx context.Context, id domain.AccountID, email string) error {
	return s.exec(ctx, updateEmailSQL, id, email)
}

func (s *ProfileStore) UpdatePasswordHash(ctx context.Context, id domain.AccountID, hash string) error {
	return s.exec(ctx, updatePasswordSQL, id, hash)
}

func (s *ProfileStore) Deactivate(ctx context.Context, id domain.AccountID) error {
	tag, err := s.pool.Exec(ctx, deactivateProfileSQL, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrAccountNotFound
	}
	return nil
}

func (s *ProfileStore) exec(ctx context.Context, sql string, id domain.AccountID, arg string) error {
	tag, err := s.pool.Exec(ctx, sql, id.UUID, arg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrAccountNotFound
	}
	return nil
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
