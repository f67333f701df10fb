package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/pqauth/ports"
)

// RedisStore is a Redis implementation of the RevocationStore interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis revocation store
func NewRedisStore(client redis.UniversalClient) ports.RevocationStore {
	return &RedisStore{
		client: client,
		prefix: "pqauth:revoked:",
	}
}

// InvalidateToken marks a token as revoked in Redis until expiry elapses.
// An existing revocation is only ever extended, never shortened.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		// Already expired tokens are rejected on expiry alone.
		return nil
	}

	key := s.prefix + tokenID
	for attempt := 0; attempt < 2; attempt++ {
		created, err := s.client.SetNX(ctx, key, "1", expiry).Result()
		if err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		if created {
			return nil
		}

		// EXPIRE GT leaves a longer TTL in place.
		if _, err := s.client.ExpireGT(ctx, key, expiry).Result(); err != nil {
			return fmt.Errorf("failed to extend token revocation: %w", err)
		}
		exists, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check token revocation: %w", err)
		}
		if exists > 0 {
			return nil
		}
		// The key expired between the two calls; create it again.
	}

	return fmt.Errorf("failed to revoke token %s: key kept expiring", tokenID)
}

// IsTokenInvalidated checks if a token is revoked in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	return val > 0, nil
}
