package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchantry/bulwark/internal/application/ports"
)

const keyPrefix = "bulwark:mfa:verified:"

// RedisStore implements ports.MFAStateStore on Redis so the server-side MFA
// flag is visible to every service instance. Entries expire by TTL; after
// expiry the account must verify a code again.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) MarkVerified(ctx context.Context, accountID string, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+accountID, "1", ttl).Err()
}

func (s *RedisStore) IsVerified(ctx context.Context, accountID string) (bool, error) {
	err := s.client.Get(ctx, keyPrefix+accountID).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ ports.MFAStateStore = (*RedisStore)(nil)
