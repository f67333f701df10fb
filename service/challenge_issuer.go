package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// ChallengeIssuer mints single-use nonces and hands each out exactly once.
type ChallengeIssuer struct {
	store ports.ChallengeStore
	ttl   time.Duration
	now   func() time.Time
	rand  io.Reader
}

// NewChallengeIssuer creates a new challenge issuer
func NewChallengeIssuer(store ports.ChallengeStore, ttl time.Duration, now func() time.Time) *ChallengeIssuer {
	if now == nil {
		now = time.Now
	}
	return &ChallengeIssuer{
		store: store,
		ttl:   ttl,
		now:   now,
		rand:  rand.Reader,
	}
}

// Issue creates and stores a fresh challenge
func (i *ChallengeIssuer) Issue(ctx context.Context) (*core.Challenge, error) {
	value := make([]byte, core.ChallengeSize)
	if _, err := io.ReadFull(i.rand, value); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := i.now()
	challenge := &core.Challenge{
		Value:    value,
		IssuedAt: now,
		Expiry:   now.Add(i.ttl),
	}

	if err := i.store.Save(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// TakeAndConsume resolves a nonce and consumes its challenge. Expiry is
// re-checked at this moment regardless of what happened at issue time.
func (i *ChallengeIssuer) TakeAndConsume(ctx context.Context, nonce string) (*core.Challenge, error) {
	value, err := core.DecodeNonce(nonce)
	if err != nil {
		return nil, err
	}
	return i.store.TakeAndConsume(ctx, value, i.now())
}
