package service

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/layer-3/pqauth/core"
)

// DemoIdentity is a server-held keypair used to exercise the login flow by
// hand. It must only be wired when demo mode is enabled.
type DemoIdentity struct {
	ID   string
	priv ed25519.PrivateKey
}

// NewDemoIdentity generates a fresh demo keypair
func NewDemoIdentity() (*DemoIdentity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate demo key: %w", err)
	}
	return &DemoIdentity{ID: core.EncodeDigitalID(pub), priv: priv}, nil
}

// SignNonce signs the decoded challenge value and returns a base64 signature
func (d *DemoIdentity) SignNonce(nonce string) (string, error) {
	value, err := core.DecodeNonce(nonce)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(d.priv, value)), nil
}
