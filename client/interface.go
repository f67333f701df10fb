package client

import (
	"context"
	"crypto/ed25519"
	"time"
)

// Client represents the public interface for interacting with the auth service
type Client interface {
	// Register adds a digital identity
	Register(ctx context.Context, digitalID string) (*Identity, error)

	// Challenge returns a fresh single-use nonce
	Challenge(ctx context.Context) (*Challenge, error)

	// Login submits a signed nonce and returns a session token
	Login(ctx context.Context, digitalID, nonce, signature string) (*Token, error)

	// Logout revokes the session token
	Logout(ctx context.Context, token string) error

	// Me resolves the session token to its identity
	Me(ctx context.Context, token string) (*Identity, error)

	// Key returns the key that verifies session tokens
	Key(ctx context.Context) (ed25519.PublicKey, error)
}

// Identity is a registered digital identity
type Identity struct {
	DigitalID    string    `json:"digital_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Challenge is a nonce to sign
type Challenge struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token is a session token
type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
