package client

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// DigitalID returns the digital id that identifies priv's public key
func DigitalID(priv ed25519.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(priv.Public().(ed25519.PublicKey))
}

// SignNonce signs the challenge value behind nonce
func SignNonce(priv ed25519.PrivateKey, nonce string) (string, error) {
	value, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", fmt.Errorf("pqauth: malformed nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, value)), nil
}

// SignIn runs the full challenge-response exchange for priv
func SignIn(ctx context.Context, c Client, priv ed25519.PrivateKey) (*Token, error) {
	challenge, err := c.Challenge(ctx)
	if err != nil {
		return nil, err
	}

	sig, err := SignNonce(priv, challenge.Nonce)
	if err != nil {
		return nil, err
	}

	return c.Login(ctx, DigitalID(priv), challenge.Nonce, sig)
}
