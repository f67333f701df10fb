package kem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMLKEM_RoundTrip(t *testing.T) {
	k := NewMLKEM()

	ek, dk, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)

	ct, ss, err := k.Encapsulate(ek)
	require.NoError(t, err)
	assert.Len(t, ct, scheme.CiphertextSize())
	assert.Len(t, ss, scheme.SharedKeySize())

	recovered, err := dk.Decapsulate(ct)
	require.NoError(t, err)
	assert.Equal(t, ss, recovered)
}

func TestMLKEM_FreshKeypairPerCall(t *testing.T) {
	k := NewMLKEM()

	ek1, _, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)
	ek2, _, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)

	assert.Len(t, ek1.Bytes(), scheme.PublicKeySize())
	assert.NotEqual(t, ek1.Bytes(), ek2.Bytes())
}

func TestMLKEM_FreshSecretPerEncapsulation(t *testing.T) {
	k := NewMLKEM()

	ek, _, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)

	ct1, ss1, err := k.Encapsulate(ek)
	require.NoError(t, err)
	ct2, ss2, err := k.Encapsulate(ek)
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2)
	assert.NotEqual(t, ss1, ss2)
}

func TestMLKEM_WrongKeyDoesNotRecoverSecret(t *testing.T) {
	k := NewMLKEM()

	ek, _, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)
	_, otherDK, err := k.GenerateEphemeralKeypair()
	require.NoError(t, err)

	ct, ss, err := k.Encapsulate(ek)
	require.NoError(t, err)

	// ML-KEM rejects implicitly: decapsulation succeeds with an unrelated secret.
	recovered, err := otherDK.Decapsulate(ct)
	require.NoError(t, err)
	assert.NotEqual(t, ss, recovered)
}

func TestMLKEM_RejectsForeignKey(t *testing.T) {
	_, _, err := NewMLKEM().Encapsulate(nil)
	assert.Error(t, err)

	_, err = (&DecapsulationKey{}).Decapsulate([]byte("short"))
	assert.Error(t, err)
}
