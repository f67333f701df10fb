package registry

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// MemoryRegistry is an in-memory implementation of the IdentityRegistry interface
type MemoryRegistry struct {
	identities map[string]core.DigitalIdentity
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMemoryRegistry creates a new in-memory registry
func NewMemoryRegistry() ports.IdentityRegistry {
	return &MemoryRegistry{
		identities: make(map[string]core.DigitalIdentity),
		now:        time.Now,
	}
}

// Register stores the identity unless its id is already taken
func (r *MemoryRegistry) Register(ctx context.Context, identity *core.DigitalIdentity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	stored := core.DigitalIdentity{
		ID:           identity.ID,
		PublicKey:    bytes.Clone(identity.PublicKey),
		RegisteredAt: identity.RegisteredAt,
	}
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.identities[stored.ID]; exists {
		return core.ErrAlreadyExists
	}
	r.identities[stored.ID] = stored
	identity.RegisteredAt = stored.RegisteredAt

	return nil
}

// Lookup returns a copy of the identity registered under id
func (r *MemoryRegistry) Lookup(ctx context.Context, id string) (*core.DigitalIdentity, error) {
	r.mu.RLock()
	stored, ok := r.identities[id]
	r.mu.RUnlock()

	if !ok {
		return nil, core.ErrIdentityNotFound
	}

	stored.PublicKey = bytes.Clone(stored.PublicKey)
	return &stored, nil
}
