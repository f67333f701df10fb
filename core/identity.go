package core

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"

	"filippo.io/edwards25519"
)

// DigitalIdentity binds a caller-chosen identifier to its verification key.
// The identifier is the standard base64 encoding of the key itself.
type DigitalIdentity struct {
	ID           string    // base64(public key)
	PublicKey    []byte    // raw Ed25519 public key
	RegisteredAt time.Time // when the identity was accepted
}

// ParseDigitalID decodes a digital id into a DigitalIdentity with a zero
// RegisteredAt. The key is structurally validated before it is returned.
// Only the canonical encoding of a key is accepted, so a key has exactly one id.
func ParseDigitalID(id string) (*DigitalIdentity, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(id)
	if err != nil {
		return nil, fmt.Errorf("decoding digital id: %w", ErrInvalidKeyEncoding)
	}
	if err := ValidatePublicKey(raw); err != nil {
		return nil, err
	}
	if EncodeDigitalID(raw) != id {
		return nil, fmt.Errorf("digital id is not canonical: %w", ErrInvalidKeyEncoding)
	}
	return &DigitalIdentity{ID: id, PublicKey: raw}, nil
}

// EncodeDigitalID returns the digital id for an Ed25519 public key.
func EncodeDigitalID(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// ValidatePublicKey checks the key length and that it decodes to a point on
// the Edwards25519 curve.
func ValidatePublicKey(raw []byte) error {
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("got %d bytes, want %d: %w", len(raw), ed25519.PublicKeySize, ErrInvalidKeyLength)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyPoint, err)
	}
	return nil
}

// Validate re-checks the invariants of an identity before it is stored.
func (d *DigitalIdentity) Validate() error {
	if d == nil {
		return ErrInvalidKeyEncoding
	}
	parsed, err := ParseDigitalID(d.ID)
	if err != nil {
		return err
	}
	if !ed25519.PublicKey(parsed.PublicKey).Equal(ed25519.PublicKey(d.PublicKey)) {
		return fmt.Errorf("digital id does not encode the supplied key: %w", ErrInvalidKeyEncoding)
	}
	return nil
}
