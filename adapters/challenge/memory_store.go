package challenge

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore interface.
// Consumed challenges stay in the map so a replay reports ErrChallengeConsumed
// rather than ErrChallengeNotFound; entries past expiry+retention are dropped
// by a sweep that runs on Save at most once per half retention.
type MemoryStore struct {
	challenges map[string]*core.Challenge
	retention  time.Duration
	nextSweep  time.Time
	mu         sync.Mutex
}

const minSweepInterval = time.Second

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore(retention time.Duration) ports.ChallengeStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		retention:  retention,
	}
}

// Save stores a freshly issued challenge
func (s *MemoryStore) Save(ctx context.Context, challenge *core.Challenge) error {
	stored := *challenge
	stored.Value = bytes.Clone(challenge.Value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(stored.IssuedAt)
	s.challenges[string(stored.Value)] = &stored
	return nil
}

// TakeAndConsume consumes the challenge in one critical section
func (s *MemoryStore) TakeAndConsume(ctx context.Context, value []byte, now time.Time) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.challenges[string(value)]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	if stored.Consumed {
		return nil, core.ErrChallengeConsumed
	}

	stored.Consumed = true
	if stored.ExpiredAt(now) {
		return nil, core.ErrChallengeExpired
	}

	out := *stored
	out.Value = bytes.Clone(stored.Value)
	return &out, nil
}

// evictLocked drops challenges that expired more than retention ago, unless
// a sweep already ran within the current interval. Must be called with mu held.
func (s *MemoryStore) evictLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(max(s.retention/2, minSweepInterval))

	for key, c := range s.challenges {
		if now.Sub(c.Expiry) > s.retention {
			delete(s.challenges, key)
		}
	}
}
