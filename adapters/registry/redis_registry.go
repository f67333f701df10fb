package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
	"github.com/redis/go-redis/v9"
)

type redisIdentity struct {
	PublicKey    []byte    `json:"public_key"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RedisRegistry is a Redis implementation of the IdentityRegistry interface
type RedisRegistry struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRegistry creates a new Redis registry
func NewRedisRegistry(client redis.UniversalClient) ports.IdentityRegistry {
	return &RedisRegistry{
		client: client,
		prefix: "pqauth:identity:",
		now:    time.Now,
	}
}

// Register stores the identity with SET NX so that concurrent registrations
// of the same id resolve to a single winner.
func (r *RedisRegistry) Register(ctx context.Context, identity *core.DigitalIdentity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	registeredAt := identity.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = r.now().UTC()
	}

	payload, err := json.Marshal(redisIdentity{
		PublicKey:    identity.PublicKey,
		RegisteredAt: registeredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.prefix+identity.ID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to register identity: %w", err)
	}
	if !created {
		return core.ErrAlreadyExists
	}

	identity.RegisteredAt = registeredAt
	return nil
}

// Lookup fetches the identity registered under id
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (*core.DigitalIdentity, error) {
	val, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	var stored redisIdentity
	if err := json.Unmarshal(val, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}

	return &core.DigitalIdentity{
		ID:           id,
		PublicKey:    stored.PublicKey,
		RegisteredAt: stored.RegisteredAt,
	}, nil
}
