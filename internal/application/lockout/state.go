package lockout

import (
	"time"

	"github.com/merchantry/bulwark/internal/domain"
)

// LockState is the pure evaluation of an account's lock window at an
// instant. It is computed without side effects; callers that observe
// Expired compose it with Manager.Reconcile.
type LockState struct {
	Locked           bool
	Expired          bool
	RemainingMinutes int
	Until            *time.Time
}

// Evaluate derives the lock state of an account snapshot at now. A nil
// account (unknown id) evaluates to unlocked. Negative counters are treated
// as zero; they indicate a programmer error upstream.
func Evaluate(acct *domain.Account, now time.Time) LockState {
	if acct == nil || acct.LockUntil == nil {
		return LockState{}
	}
	until := *acct.LockUntil
	if !now.Before(until) {
		return LockState{Expired: true}
	}
	remaining := until.Sub(now)
	mins := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		mins++
	}
	return LockState{Locked: true, RemainingMinutes: mins, Until: &until}
}

// attemptsRemaining clamps the counter into [0, MaxAttempts].
func attemptsRemaining(count int) int {
	if count < 0 {
		count = 0
	}
	left := MaxAttempts - count
	if left < 0 {
		return 0
	}
	return left
}
