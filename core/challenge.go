package core

import (
	"encoding/base64"
	"fmt"
	"time"
)

// ChallengeSize is the number of random bytes in a challenge value.
const ChallengeSize = 32

// Challenge is a single-use, time-boxed nonce a caller must sign.
type Challenge struct {
	Value    []byte    // random bytes the caller signs
	IssuedAt time.Time // when the challenge was created
	Expiry   time.Time // IssuedAt + challenge TTL
	Consumed bool      // set on the first verification attempt
}

// Nonce is the reference handed to callers: base64 of the challenge value.
func (c *Challenge) Nonce() string {
	return base64.StdEncoding.EncodeToString(c.Value)
}

// ExpiredAt reports whether the challenge is no longer usable at now.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.Expiry)
}

// DecodeNonce turns a caller-supplied nonce back into the challenge value.
func DecodeNonce(nonce string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", ErrMalformedChallenge)
	}
	if len(raw) != ChallengeSize {
		return nil, fmt.Errorf("nonce is %d bytes, want %d: %w", len(raw), ChallengeSize, ErrMalformedChallenge)
	}
	return raw, nil
}
