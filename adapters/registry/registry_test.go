package registry

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

func newIdentity(t *testing.T) *core.DigitalIdentity {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	identity, err := core.ParseDigitalID(core.EncodeDigitalID(pub))
	require.NoError(t, err)
	return identity
}

func backends(t *testing.T) map[string]func(t *testing.T) ports.IdentityRegistry {
	return map[string]func(t *testing.T) ports.IdentityRegistry{
		"memory": func(t *testing.T) ports.IdentityRegistry {
			return NewMemoryRegistry()
		},
		"redis": func(t *testing.T) ports.IdentityRegistry {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return NewRedisRegistry(client)
		},
		"sqlite": func(t *testing.T) ports.IdentityRegistry {
			reg, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "identities.db"), zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { reg.Close() })
			return reg
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)
			ctx := context.Background()
			identity := newIdentity(t)

			require.NoError(t, reg.Register(ctx, identity))
			assert.False(t, identity.RegisteredAt.IsZero())

			got, err := reg.Lookup(ctx, identity.ID)
			require.NoError(t, err)
			assert.Equal(t, identity.ID, got.ID)
			assert.Equal(t, identity.PublicKey, got.PublicKey)
			assert.WithinDuration(t, identity.RegisteredAt, got.RegisteredAt, 0)
		})
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)

			_, err := reg.Lookup(context.Background(), newIdentity(t).ID)
			assert.ErrorIs(t, err, core.ErrIdentityNotFound)
		})
	}
}

func TestRegistry_RejectsAliasedID(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)
			ctx := context.Background()
			identity := newIdentity(t)
			require.NoError(t, reg.Register(ctx, identity))

			// non-canonical padding bits decode to the same key
			const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
			pos := strings.IndexByte(alphabet, identity.ID[42])
			alias := &core.DigitalIdentity{
				ID:        identity.ID[:42] + string(alphabet[pos^1]) + identity.ID[43:],
				PublicKey: identity.PublicKey,
			}
			assert.ErrorIs(t, reg.Register(ctx, alias), core.ErrInvalidKeyEncoding)

			_, err := reg.Lookup(ctx, alias.ID)
			assert.ErrorIs(t, err, core.ErrIdentityNotFound)
		})
	}
}

func TestRegistry_DuplicateKeepsFirstKey(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)
			ctx := context.Background()
			identity := newIdentity(t)

			require.NoError(t, reg.Register(ctx, identity))
			first, err := reg.Lookup(ctx, identity.ID)
			require.NoError(t, err)

			again := &core.DigitalIdentity{ID: identity.ID, PublicKey: identity.PublicKey}
			assert.ErrorIs(t, reg.Register(ctx, again), core.ErrAlreadyExists)

			got, err := reg.Lookup(ctx, identity.ID)
			require.NoError(t, err)
			assert.Equal(t, first.PublicKey, got.PublicKey)
			assert.WithinDuration(t, first.RegisteredAt, got.RegisteredAt, 0)
		})
	}
}

func TestRegistry_RejectsMalformedKey(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)
			ctx := context.Background()

			short := &core.DigitalIdentity{ID: "AAAA", PublicKey: []byte{0, 0, 0}}
			assert.ErrorIs(t, reg.Register(ctx, short), core.ErrInvalidKeyLength)

			garbage := &core.DigitalIdentity{ID: "not base64!!"}
			assert.ErrorIs(t, reg.Register(ctx, garbage), core.ErrInvalidKeyEncoding)

			identity := newIdentity(t)
			other := newIdentity(t)
			mismatched := &core.DigitalIdentity{ID: identity.ID, PublicKey: other.PublicKey}
			assert.ErrorIs(t, reg.Register(ctx, mismatched), core.ErrInvalidKeyEncoding)

			_, err := reg.Lookup(ctx, identity.ID)
			assert.ErrorIs(t, err, core.ErrIdentityNotFound)
		})
	}
}

func TestRegistry_ConcurrentRegistrationHasOneWinner(t *testing.T) {
	for name, newRegistry := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry(t)
			ctx := context.Background()
			identity := newIdentity(t)

			const workers = 16
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					candidate := &core.DigitalIdentity{ID: identity.ID, PublicKey: identity.PublicKey}
					err := reg.Register(ctx, candidate)

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case assert.ErrorIs(t, err, core.ErrAlreadyExists):
						conflicts++
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, workers-1, conflicts)
		})
	}
}
