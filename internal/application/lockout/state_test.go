package lockout

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/merchantry/bulwark/internal/domain"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		u := now.Add(d)
		return &u
	}

	tests := []struct {
		name        string
		acct        *domain.Account
		wantLocked  bool
		wantExpired bool
		wantMinutes int
	}{
		{name: "nil account", acct: nil},
		{name: "no lock window", acct: &domain.Account{FailedAttempts: 4}},
		{
			name:        "active lock rounds partial minutes up",
			acct:        &domain.Account{LockUntil: at(29*time.Minute + 30*time.Second)},
			wantLocked:  true,
			wantMinutes: 30,
		},
		{
			name:        "active lock on exact minute boundary",
			acct:        &domain.Account{LockUntil: at(5 * time.Minute)},
			wantLocked:  true,
			wantMinutes: 5,
		},
		{
			name:        "under a minute reports one minute",
			acct:        &domain.Account{LockUntil: at(10 * time.Second)},
			wantLocked:  true,
			wantMinutes: 1,
		},
		{
			name:        "lock expiring exactly now is expired",
			acct:        &domain.Account{LockUntil: at(0)},
			wantExpired: true,
		},
		{
			name:        "lock in the past is expired",
			acct:        &domain.Account{LockUntil: at(-time.Minute), FailedAttempts: 5},
			wantExpired: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.acct, now)
			if got.Locked != tt.wantLocked {
				t.Errorf("Locked = %v, want %v", got.Locked, tt.wantLocked)
			}
			if got.Expired != tt.wantExpired {
				t.Errorf("Expired = %v, want %v", got.Expired, tt.wantExpired)
			}
			if got.RemainingMinutes != tt.wantMinutes {
				t.Errorf("RemainingMinutes = %d, want %d", got.RemainingMinutes, tt.wantMinutes)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(10 * time.Minute)
	acct := &domain.Account{
		ID:             domain.NewAccountID(uuid.New()),
		FailedAttempts: 5,
		LockUntil:      &until,
	}
	first := Evaluate(acct, now)
	second := Evaluate(acct, now)
	if first != second {
		t.Fatalf("repeated evaluation diverged: %+v vs %+v", first, second)
	}
	if acct.FailedAttempts != 5 || acct.LockUntil == nil || !acct.LockUntil.Equal(until) {
		t.Fatalf("evaluation mutated the snapshot: %+v", acct)
	}
}

func TestAttemptsRemaining(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{count: 0, want: 5},
		{count: 1, want: 4},
		{count: 5, want: 0},
		{count: 7, want: 0},
		{count: -1, want: 5},
	}
	for _, tt := range tests {
		if got := attemptsRemaining(tt.count); got != tt.want {
			t.Errorf("attemptsRemaining(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}
