package signature

import (
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// Ed25519Verifier verifies Edwards-curve signatures over challenge values.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new verifier
func NewEd25519Verifier() ports.SignatureVerifier {
	return Ed25519Verifier{}
}

// Verify checks sizes first and then runs the standard Ed25519 verification.
// The cryptographic check itself has no data-dependent early exit.
func (Ed25519Verifier) Verify(publicKey, message, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes: %w", ed25519.PublicKeySize, core.ErrMalformedPublicKey)
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("signature must be %d bytes: %w", ed25519.SignatureSize, core.ErrMalformedSignature)
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		return core.ErrSignatureInvalid
	}
	return nil
}
