package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/pqauth/ports"
)

// MemoryStore is an in-memory implementation of the RevocationStore interface.
// Revocations expire lazily: stale entries are ignored on read and swept on
// write, at most once per sweepInterval.
type MemoryStore struct {
	revoked   map[string]time.Time
	nextSweep time.Time
	mu        sync.RWMutex
	now       func() time.Time
}

const sweepInterval = time.Minute

// NewMemoryStore creates a new in-memory revocation store
func NewMemoryStore() ports.RevocationStore {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

// InvalidateToken marks a token as revoked for the given duration
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	// Never shorten an existing revocation.
	until := now.Add(expiry)
	if stored, ok := s.revoked[tokenID]; !ok || until.After(stored) {
		s.revoked[tokenID] = until
	}
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(sweepInterval)

	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
}

// IsTokenInvalidated checks if a token is revoked
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, exists := s.revoked[tokenID]
	if !exists {
		return false, nil
	}
	return s.now().Before(until), nil
}
