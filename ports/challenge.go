package ports

import (
	"context"
	"time"

	"github.com/layer-3/pqauth/core"
)

// ChallengeStore tracks outstanding challenges.
type ChallengeStore interface {
	// Save stores a freshly issued challenge.
	Save(ctx context.Context, challenge *core.Challenge) error

	// TakeAndConsume marks the challenge consumed and returns it. Exactly one
	// of any number of concurrent callers succeeds; the rest observe
	// core.ErrChallengeConsumed. Expiry is checked against now.
	TakeAndConsume(ctx context.Context, value []byte, now time.Time) (*core.Challenge, error)
}
