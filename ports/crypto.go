package ports

import (
	"crypto/ed25519"

	"github.com/layer-3/pqauth/core"
)

// SignatureVerifier checks a detached signature over a challenge value.
type SignatureVerifier interface {
	Verify(publicKey, message, signature []byte) error
}

// EncapsulationKey is the public half of an ephemeral KEM keypair.
type EncapsulationKey interface {
	Bytes() []byte
}

// DecapsulationKey is the private half of an ephemeral KEM keypair.
type DecapsulationKey interface {
	Decapsulate(ciphertext []byte) ([]byte, error)
}

// KeyEncapsulator derives a one-time session secret independent of identity keys.
type KeyEncapsulator interface {
	GenerateEphemeralKeypair() (EncapsulationKey, DecapsulationKey, error)
	Encapsulate(key EncapsulationKey) (ciphertext, sharedSecret []byte, err error)
}

// TokenAuthority is the key custody boundary that mints and validates session
// tokens. The signing key never leaves the implementation.
type TokenAuthority interface {
	Issue(subject string) (string, *core.SessionClaim, error)
	Validate(token string) (*core.SessionClaim, error)
	PublicKey() ed25519.PublicKey
}
