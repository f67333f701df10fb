package challenge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
	"github.com/redis/go-redis/v9"
)

type redisChallenge struct {
	IssuedAt time.Time `json:"issued_at"`
	Expiry   time.Time `json:"expiry"`
}

// RedisStore is a Redis implementation of the ChallengeStore interface
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a new Redis challenge store. Keys live for the
// challenge lifetime plus retention, after which Redis evicts them.
func NewRedisStore(client redis.UniversalClient, retention time.Duration) ports.ChallengeStore {
	return &RedisStore{
		client:    client,
		prefix:    "pqauth:challenge:",
		retention: retention,
	}
}

func (s *RedisStore) key(value []byte) string {
	return s.prefix + base64.RawURLEncoding.EncodeToString(value)
}

// Save stores a freshly issued challenge
func (s *RedisStore) Save(ctx context.Context, challenge *core.Challenge) error {
	payload, err := json.Marshal(redisChallenge{
		IssuedAt: challenge.IssuedAt,
		Expiry:   challenge.Expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ttl := challenge.Expiry.Sub(challenge.IssuedAt) + s.retention
	if err := s.client.Set(ctx, s.key(challenge.Value), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// TakeAndConsume claims the challenge with SET NX on a consumed marker, so
// exactly one caller observes it unconsumed.
func (s *RedisStore) TakeAndConsume(ctx context.Context, value []byte, now time.Time) (*core.Challenge, error) {
	key := s.key(value)

	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var stored redisChallenge
	if err := json.Unmarshal(val, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	ttl := stored.Expiry.Sub(stored.IssuedAt) + s.retention
	claimed, err := s.client.SetNX(ctx, key+":consumed", "1", ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !claimed {
		return nil, core.ErrChallengeConsumed
	}

	challenge := &core.Challenge{
		Value:    value,
		IssuedAt: stored.IssuedAt,
		Expiry:   stored.Expiry,
		Consumed: true,
	}
	if challenge.ExpiredAt(now) {
		return nil, core.ErrChallengeExpired
	}

	return challenge, nil
}
