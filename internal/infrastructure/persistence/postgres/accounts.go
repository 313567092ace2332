package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

const (
	getSecuritySQL = `SELECT id, email, failed_attempts, lock_until, last_success_at, last_failure_at
FROM account_security WHERE id = $1`

	// Single-statement increment: the counter bump, threshold comparison,
	// and lock assignment commit atomically, so concurrent failures across
	// service instances cannot both observe a pre-increment count.
	recordFailureSQL = `UPDATE account_security SET
	failed_attempts = failed_attempts + 1,
	last_failure_at = $2,
	lock_until = CASE WHEN failed_attempts + 1 >= $3 THEN $2::timestamptz + $4::interval ELSE lock_until END
WHERE id = $1
RETURNING failed_attempts, lock_until`

	recordSuccessSQL = `UPDATE account_security SET
	failed_attempts = 0,
	lock_until = NULL,
	last_success_at = $2
WHERE id = $1`

	clearExpiredLockSQL = `UPDATE account_security SET
	failed_attempts = 0,
	lock_until = NULL
WHERE id = $1 AND lock_until IS NOT NULL AND lock_until <= $2`

	unlockSQL = `UPDATE account_security SET failed_attempts = 0, lock_until = NULL WHERE id = $1`

	appendLoginEventSQL = `INSERT INTO login_events (account_id, at, outcome, source, user_agent)
VALUES ($1, $2, $3, $4, $5)`

	loginHistorySQL = `SELECT at, outcome, source, user_agent FROM login_events
WHERE account_id = $1 ORDER BY at DESC LIMIT $2`
)

// AccountStore implements ports.AccountSecurityStore on Postgres. The
// login_events table is append-only; rows are never updated or deleted here.
type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) GetSecurity(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	var acct domain.Account
	var acctID string
	err := s.pool.QueryRow(ctx, getSecuritySQL, id.UUID).Scan(
		&acctID, &acct.Email, &acct.FailedAttempts, &acct.LockUntil,
		&acct.LastSuccessfulLogin, &acct.LastFailedLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domerrors.ErrAccountNotFound
		}
		return nil, err
	}
	acct.ID = id
	return &acct, nil
}

func (s *AccountStore) RecordFailure(ctx context.Context, id domain.AccountID, ev domain.LoginEvent, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback(ctx)

	var attempts int
	var lockUntil *time.Time
	err = tx.QueryRow(ctx, recordFailureSQL, id.UUID, ev.At, maxAttempts, lockFor).Scan(&attempts, &lockUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, domerrors.ErrAccountNotFound
		}
		return 0, nil, err
	}
	if _, err := tx.Exec(ctx, appendLoginEventSQL, id.UUID, ev.At, string(ev.Outcome), ev.Source, ev.UserAgent); err != nil {
		return 0, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}
	return attempts, lockUntil, nil
}

func (s *AccountStore) RecordSuccess(ctx context.Context, id domain.AccountID, ev domain.LoginEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, recordSuccessSQL, id.UUID, ev.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrAccountNotFound
	}
	if _, err := tx.Exec(ctx, appendLoginEventSQL, id.UUID, ev.At, string(ev.Outcome), ev.Source, ev.UserAgent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *AccountStore) ClearExpiredLock(ctx context.Context, id domain.AccountID, now time.Time) error {
	// The WHERE clause makes this idempotent: only an elapsed lock matches.
	_, err := s.pool.Exec(ctx, clearExpiredLockSQL, id.UUID, now)
	return err
}

func (s *AccountStore) Unlock(ctx context.Context, id domain.AccountID) error {
	tag, err := s.pool.Exec(ctx, unlockSQL, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) LoginHistory(ctx context.Context, id domain.AccountID, limit int) ([]domain.LoginEvent, error) {
	rows, err := s.pool.Query(ctx, loginHistorySQL, id.UUID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LoginEvent
	for rows.Next() {
		var ev domain.LoginEvent
		var outcome string
		if err := rows.Scan(&ev.At, &outcome, &ev.Source, &ev.UserAgent); err != nil {
			return nil, err
		}
		ev.Outcome = domain.LoginOutcome(outcome)
		events = append(events, ev)
	}
	return events, rows.Err()
}

var _ ports.AccountSecurityStore = (*AccountStore)(nil)
