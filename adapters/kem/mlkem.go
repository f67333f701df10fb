// Package kem provides the ephemeral post-quantum key encapsulation step of
// the login protocol, backed by ML-KEM-768.
package kem

import (
	"fmt"

	circlkem "github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/layer-3/pqauth/ports"
)

var scheme = mlkem768.Scheme()

// EncapsulationKey is an ML-KEM-768 public key.
type EncapsulationKey struct {
	key circlkem.PublicKey
}

// Bytes returns the packed public key.
func (k *EncapsulationKey) Bytes() []byte {
	if k == nil || k.key == nil {
		return nil
	}

	bs, err := k.key.MarshalBinary()
	if err != nil {
		// this should not happen
		panic(fmt.Sprintf("failed to marshal ML-KEM public key: %v", err))
	}
	return bs
}

// DecapsulationKey is an ML-KEM-768 private key.
type DecapsulationKey struct {
	key circlkem.PrivateKey
}

// Decapsulate recovers the shared secret from a ciphertext.
func (k *DecapsulationKey) Decapsulate(ciphertext []byte) ([]byte, error) {
	if k == nil || k.key == nil {
		return nil, fmt.Errorf("kem: decapsulation key cannot be nil")
	}
	if len(ciphertext) != scheme.CiphertextSize() {
		return nil, fmt.Errorf("kem: ciphertext must be %d bytes", scheme.CiphertextSize())
	}
	return scheme.Decapsulate(k.key, ciphertext)
}

// MLKEM implements ports.KeyEncapsulator. It holds no key material; every
// call generates fresh keys.
type MLKEM struct{}

// NewMLKEM creates a new ML-KEM-768 encapsulator
func NewMLKEM() ports.KeyEncapsulator {
	return MLKEM{}
}

// GenerateEphemeralKeypair returns a fresh ML-KEM-768 keypair.
func (MLKEM) GenerateEphemeralKeypair() (ports.EncapsulationKey, ports.DecapsulationKey, error) {
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("kem: error generating keypair: %w", err)
	}
	return &EncapsulationKey{key: pub}, &DecapsulationKey{key: priv}, nil
}

// Encapsulate derives a shared secret and its ciphertext against key.
func (MLKEM) Encapsulate(key ports.EncapsulationKey) ([]byte, []byte, error) {
	ek, ok := key.(*EncapsulationKey)
	if !ok || ek == nil || ek.key == nil {
		return nil, nil, fmt.Errorf("kem: unsupported encapsulation key %T", key)
	}

	ct, ss, err := scheme.Encapsulate(ek.key)
	if err != nil {
		return nil, nil, fmt.Errorf("kem: error encapsulating: %w", err)
	}
	return ct, ss, nil
}
