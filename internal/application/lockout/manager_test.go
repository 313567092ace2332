package lockout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// fakeStore is an in-memory AccountSecurityStore honoring the port's atomic
// read-modify-write contract under a single mutex.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[domain.AccountID]*domain.Account
	events   map[domain.AccountID][]domain.LoginEvent
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[domain.AccountID]*domain.Account),
		events:   make(map[domain.AccountID][]domain.LoginEvent),
	}
}

func (s *fakeStore) seed(acct domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := acct
	s.accounts[acct.ID] = &cp
}

func (s *fakeStore) GetSecurity(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	acct, ok := s.accounts[id]
	if !ok {
		return nil, domerrors.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *fakeStore) RecordFailure(_ context.Context, id domain.AccountID, ev domain.LoginEvent, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, nil, s.failWith
	}
	acct, ok := s.accounts[id]
	if !ok {
		return 0, nil, domerrors.ErrAccountNotFound
	}
	acct.FailedAttempts++
	at := ev.At
	acct.LastFailedLogin = &at
	if acct.FailedAttempts >= maxAttempts && acct.LockUntil == nil {
		until := ev.At.Add(lockFor)
		acct.LockUntil = &until
	}
	s.events[id] = append(s.events[id], ev)
	return acct.FailedAttempts, acct.LockUntil, nil
}

func (s *fakeStore) RecordSuccess(_ context.Context, id domain.AccountID, ev domain.LoginEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	acct, ok := s.accounts[id]
	if !ok {
		return domerrors.ErrAccountNotFound
	}
	acct.FailedAttempts = 0
	acct.LockUntil = nil
	at := ev.At
	acct.LastSuccessfulLogin = &at
	s.events[id] = append(s.events[id], ev)
	return nil
}

func (s *fakeStore) ClearExpiredLock(_ context.Context, id domain.AccountID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	acct, ok := s.accounts[id]
	if !ok {
		return nil
	}
	if acct.LockUntil != nil && !now.Before(*acct.LockUntil) {
		acct.FailedAttempts = 0
		acct.LockUntil = nil
	}
	return nil
}

func (s *fakeStore) Unlock(_ context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	acct, ok := s.accounts[id]
	if !ok {
		return domerrors.ErrAccountNotFound
	}
	acct.FailedAttempts = 0
	acct.LockUntil = nil
	return nil
}

func (s *fakeStore) LoginHistory(_ context.Context, id domain.AccountID, limit int) ([]domain.LoginEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	evs := s.events[id]
	out := make([]domain.LoginEvent, 0, limit)
	for i := len(evs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, evs[i])
	}
	return out, nil
}

func (s *fakeStore) snapshot(id domain.AccountID) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(store *fakeStore) *Manager {
	return NewManager(store, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
}

func TestCheckLockoutUnlocked(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	store.seed(domain.Account{ID: id, FailedAttempts: 4})
	m := newTestManager(store)

	res, err := m.CheckLockout(context.Background(), id)
	if err != nil {
		t.Fatalf("CheckLockout: %v", err)
	}
	if res.IsLocked {
		t.Fatalf("account below the threshold reported locked: %+v", res)
	}
}

func TestCheckLockoutUnknownAccount(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)

	res, err := m.CheckLockout(context.Background(), domain.NewAccountID(uuid.New()))
	if err != nil {
		t.Fatalf("unknown account must not error: %v", err)
	}
	if res.IsLocked {
		t.Fatal("unknown account reported locked")
	}
	if len(store.accounts) != 0 || len(store.events) != 0 {
		t.Fatal("check of an unknown account mutated the store")
	}
}

func TestCheckLockoutFailsClosedOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	m := newTestManager(store)

	if _, err := m.CheckLockout(context.Background(), domain.NewAccountID(uuid.New())); err == nil {
		t.Fatal("store fault must surface as an error, not an unlocked result")
	}
}

func TestCheckLockoutActiveLock(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	until := testNow.Add(30 * time.Minute)
	store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
	m := newTestManager(store)

	res, err := m.CheckLockout(context.Background(), id)
	if err != nil {
		t.Fatalf("CheckLockout: %v", err)
	}
	if !res.IsLocked {
		t.Fatal("locked account reported unlocked")
	}
	if res.RemainingMinutes != 30 {
		t.Errorf("RemainingMinutes = %d, want 30", res.RemainingMinutes)
	}
	if !strings.Contains(res.Message, "30 minutes") {
		t.Errorf("message %q does not disclose the remaining window", res.Message)
	}
}

func TestCheckLockoutMessageSingularMinute(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	until := testNow.Add(30 * time.Second)
	store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
	m := newTestManager(store)

	res, err := m.CheckLockout(context.Background(), id)
	if err != nil {
		t.Fatalf("CheckLockout: %v", err)
	}
	if want := "account temporarily locked; try again in 1 minute"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestCheckLockoutIdempotent(t *testing.T) {
	t.Run("active lock", func(t *testing.T) {
		store := newFakeStore()
		id := domain.NewAccountID(uuid.New())
		until := testNow.Add(15 * time.Minute)
		store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
		m := newTestManager(store)

		first, err := m.CheckLockout(context.Background(), id)
		if err != nil {
			t.Fatalf("first CheckLockout: %v", err)
		}
		snapshot := store.snapshot(id)
		second, err := m.CheckLockout(context.Background(), id)
		if err != nil {
			t.Fatalf("second CheckLockout: %v", err)
		}
		if first != second {
			t.Errorf("repeated checks diverged: %+v vs %+v", first, second)
		}
		if got := store.snapshot(id); got != snapshot {
			t.Errorf("second check mutated the ledger: %+v vs %+v", got, snapshot)
		}
	})

	t.Run("expired lock", func(t *testing.T) {
		store := newFakeStore()
		id := domain.NewAccountID(uuid.New())
		until := testNow.Add(-time.Minute)
		store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
		m := newTestManager(store)

		// The first check reconciles the elapsed window; the second observes
		// the already-reset ledger. Both report unlocked.
		first, err := m.CheckLockout(context.Background(), id)
		if err != nil {
			t.Fatalf("first CheckLockout: %v", err)
		}
		snapshot := store.snapshot(id)
		if snapshot.FailedAttempts != 0 || snapshot.LockUntil != nil {
			t.Fatalf("first check did not reconcile: %+v", snapshot)
		}
		second, err := m.CheckLockout(context.Background(), id)
		if err != nil {
			t.Fatalf("second CheckLockout: %v", err)
		}
		if first != second {
			t.Errorf("repeated checks diverged: %+v vs %+v", first, second)
		}
		if got := store.snapshot(id); got != snapshot {
			t.Errorf("second check mutated the reconciled ledger: %+v vs %+v", got, snapshot)
		}
	})
}

func TestCheckLockoutExpiredLockResetsCounter(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	until := testNow.Add(-time.Second)
	store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
	m := newTestManager(store)

	res, err := m.CheckLockout(context.Background(), id)
	if err != nil {
		t.Fatalf("CheckLockout: %v", err)
	}
	if res.IsLocked {
		t.Fatal("expired lock reported locked")
	}
	acct := store.snapshot(id)
	if acct.FailedAttempts != 0 || acct.LockUntil != nil {
		t.Fatalf("expired lock not reconciled: attempts=%d lock=%v", acct.FailedAttempts, acct.LockUntil)
	}

	// A fresh threshold of failures is required to lock again.
	for i := 0; i < MaxAttempts-1; i++ {
		ar, err := m.RecordFailedAttempt(context.Background(), id, "", "")
		if err != nil {
			t.Fatalf("RecordFailedAttempt: %v", err)
		}
		if ar.IsLocked {
			t.Fatalf("locked after %d post-expiry failures", i+1)
		}
	}
	ar, err := m.RecordFailedAttempt(context.Background(), id, "", "")
	if err != nil {
		t.Fatalf("RecordFailedAttempt: %v", err)
	}
	if !ar.IsLocked {
		t.Fatal("fifth post-expiry failure did not lock")
	}
}

func TestRecordFailedAttemptLocksAtThreshold(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	store.seed(domain.Account{ID: id})
	m := newTestManager(store)
	ctx := context.Background()

	for i := 1; i < MaxAttempts; i++ {
		res, err := m.RecordFailedAttempt(ctx, id, "203.0.113.7", "cli")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if res.IsLocked {
			t.Fatalf("locked after %d attempts", i)
		}
		if want := MaxAttempts - i; res.AttemptsRemaining != want {
			t.Errorf("attempt %d: AttemptsRemaining = %d, want %d", i, res.AttemptsRemaining, want)
		}
	}

	res, err := m.RecordFailedAttempt(ctx, id, "203.0.113.7", "cli")
	if err != nil {
		t.Fatalf("final attempt: %v", err)
	}
	if !res.IsLocked {
		t.Fatal("threshold attempt did not lock")
	}
	if res.AttemptsRemaining != 0 {
		t.Errorf("AttemptsRemaining = %d, want 0", res.AttemptsRemaining)
	}
	if res.LockUntil == nil || !res.LockUntil.Equal(testNow.Add(LockoutDuration)) {
		t.Errorf("LockUntil = %v, want %v", res.LockUntil, testNow.Add(LockoutDuration))
	}
}

func TestRecordSuccessResetsLedger(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	until := testNow.Add(10 * time.Minute)
	store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
	m := newTestManager(store)
	ctx := context.Background()

	if err := m.RecordSuccess(ctx, id, "203.0.113.7", "cli"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	acct := store.snapshot(id)
	if acct.FailedAttempts != 0 || acct.LockUntil != nil {
		t.Fatalf("ledger not reset: attempts=%d lock=%v", acct.FailedAttempts, acct.LockUntil)
	}
	if acct.LastSuccessfulLogin == nil || !acct.LastSuccessfulLogin.Equal(testNow) {
		t.Errorf("LastSuccessfulLogin = %v, want %v", acct.LastSuccessfulLogin, testNow)
	}
}

func TestUnlockClearsActiveLock(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	until := testNow.Add(25 * time.Minute)
	store.seed(domain.Account{ID: id, FailedAttempts: 5, LockUntil: &until})
	m := newTestManager(store)
	ctx := context.Background()

	if err := m.Unlock(ctx, id); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	res, err := m.CheckLockout(ctx, id)
	if err != nil {
		t.Fatalf("CheckLockout: %v", err)
	}
	if res.IsLocked {
		t.Fatal("account still locked after operator unlock")
	}
}

func TestStatusSurfacesNotFound(t *testing.T) {
	m := newTestManager(newFakeStore())
	_, _, err := m.Status(context.Background(), domain.NewAccountID(uuid.New()))
	if !errors.Is(err, domerrors.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	store := newFakeStore()
	id := domain.NewAccountID(uuid.New())
	store.seed(domain.Account{ID: id})
	m := newTestManager(store)
	ctx := context.Background()

	if _, err := m.RecordFailedAttempt(ctx, id, "a", ""); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordSuccess(ctx, id, "b", ""); err != nil {
		t.Fatal(err)
	}

	evs, err := m.History(ctx, id, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(evs))
	}
	if evs[0].Outcome != domain.LoginSuccess || evs[1].Outcome != domain.LoginFailure {
		t.Errorf("events not newest-first: %+v", evs)
	}
}
