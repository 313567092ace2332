package mfa

import (
	"context"
	"sync"
	"time"

	"github.com/merchantry/bulwark/internal/application/ports"
)

// MemoryStore is an in-memory MFAStateStore suitable for single-instance
// deployment and tests. Multi-instance deployments need the Redis store so
// a verification on one instance is visible to the others.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]time.Time)}
}

func (s *MemoryStore) MarkVerified(ctx context.Context, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[accountID] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsVerified(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	until, ok := s.data[accountID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		s.mu.Lock()
		delete(s.data, accountID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

var _ ports.MFAStateStore = (*MemoryStore)(nil)
