package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

const (
	// MaxAttempts is the consecutive-failure threshold that locks an account.
	MaxAttempts = 5
	// LockoutDuration is how long an account stays locked after the
	// threshold is reached.
	LockoutDuration = 30 * time.Minute
)

// CheckResult is the outcome of a lockout gate check before credential
// verification.
type CheckResult struct {
	IsLocked         bool
	RemainingMinutes int
	Message          string
}

// AttemptResult is the outcome of recording one failed attempt.
type AttemptResult struct {
	AttemptsRemaining int
	IsLocked          bool
	LockUntil         *time.Time
}

// Manager is the per-account failed-attempt ledger. All mutations go through
// the store's atomic operations; the manager itself keeps no state, so one
// instance serves unbounded concurrent requests.
type Manager struct {
	store ports.AccountSecurityStore
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a lockout manager on top of the account security store.
func NewManager(store ports.AccountSecurityStore, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckLockout gates a login attempt. It must run strictly before credential
// verification: a locked account can never authenticate its way out.
//
// Unknown accounts report unlocked without any mutation, so this call alone
// does not betray account existence. Any other store failure is returned as
// an error and the caller must deny (fail closed), never assume unlocked.
func (m *Manager) CheckLockout(ctx context.Context, id domain.AccountID) (CheckResult, error) {
	acct, err := m.store.GetSecurity(ctx, id)
	if err != nil {
		if errors.Is(err, domerrors.ErrAccountNotFound) {
			return CheckResult{}, nil
		}
		return CheckResult{}, fmt.Errorf("lockout check: %w", err)
	}
	state := Evaluate(acct, m.now())
	if state.Expired {
		if err := m.Reconcile(ctx, id); err != nil {
			// The lock already elapsed; a failed reset only delays the
			// counter reset until the next observation.
			m.log.Warn().Err(err).Str("account_id", id.String()).Msg("expired lock reset failed")
		}
		return CheckResult{}, nil
	}
	if !state.Locked {
		return CheckResult{}, nil
	}
	return CheckResult{
		IsLocked:         true,
		RemainingMinutes: state.RemainingMinutes,
		Message:          lockedMessage(state.RemainingMinutes),
	}, nil
}

// Reconcile clears an elapsed lock window and resets the failure counter.
// Idempotent; safe to call for unlocked or missing accounts.
func (m *Manager) Reconcile(ctx context.Context, id domain.AccountID) error {
	return m.store.ClearExpiredLock(ctx, id, m.now())
}

// RecordFailedAttempt registers one failed login. The increment and the
// threshold comparison happen atomically in the store, so concurrent
// failures cannot slip past the threshold.
func (m *Manager) RecordFailedAttempt(ctx context.Context, id domain.AccountID, source, agent string) (AttemptResult, error) {
	ev := domain.LoginEvent{At: m.now(), Outcome: domain.LoginFailure, Source: source, UserAgent: agent}
	count, lockUntil, err := m.store.RecordFailure(ctx, id, ev, MaxAttempts, LockoutDuration)
	if err != nil {
		return AttemptResult{}, fmt.Errorf("record failed attempt: %w", err)
	}
	res := AttemptResult{
		AttemptsRemaining: attemptsRemaining(count),
		IsLocked:          lockUntil != nil && m.now().Before(*lockUntil),
		LockUntil:         lockUntil,
	}
	if res.IsLocked {
		m.log.Warn().
			Str("account_id", id.String()).
			Int("failed_attempts", count).
			Time("lock_until", *lockUntil).
			Msg("account locked")
	}
	return res, nil
}

// RecordSuccess resets the ledger after a successful authentication.
func (m *Manager) RecordSuccess(ctx context.Context, id domain.AccountID, source, agent string) error {
	ev := domain.LoginEvent{At: m.now(), Outcome: domain.LoginSuccess, Source: source, UserAgent: agent}
	if err := m.store.RecordSuccess(ctx, id, ev); err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return nil
}

// Unlock clears a lock ahead of its expiry. Admin-only.
func (m *Manager) Unlock(ctx context.Context, id domain.AccountID) error {
	if err := m.store.Unlock(ctx, id); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	m.log.Info().Str("account_id", id.String()).Msg("account unlocked by operator")
	return nil
}

// Status returns the current ledger snapshot for operator views. Unlike
// CheckLockout it surfaces ErrAccountNotFound, since the admin surface is
// not subject to the existence-non-disclosure rule.
func (m *Manager) Status(ctx context.Context, id domain.AccountID) (*domain.Account, LockState, error) {
	acct, err := m.store.GetSecurity(ctx, id)
	if err != nil {
		return nil, LockState{}, err
	}
	return acct, Evaluate(acct, m.now()), nil
}

// History returns the most recent login events, newest first.
func (m *Manager) History(ctx context.Context, id domain.AccountID, limit int) ([]domain.LoginEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.store.LoginHistory(ctx, id, limit)
}

func lockedMessage(minutes int) string {
	if minutes == 1 {
		return "account temporarily locked; try again in 1 minute"
	}
	return fmt.Sprintf("account temporarily locked; try again in %d minutes", minutes)
}
