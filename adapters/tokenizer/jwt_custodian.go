package tokenizer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// Custodian implements the TokenAuthority interface using EdDSA-signed JWTs.
// The signing key is generated once per process and never leaves the struct.
type Custodian struct {
	signKey ed25519.PrivateKey
	issuer  string
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Custodian
type Option func(*Custodian)

// WithClock replaces the wall clock used for issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Custodian) {
		c.now = now
	}
}

// NewCustodian creates a new token custodian with a fresh signing key
func NewCustodian(issuer string, ttl time.Duration, opts ...Option) (*Custodian, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	_, signKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	c := &Custodian{
		signKey: signKey,
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ ports.TokenAuthority = (*Custodian)(nil)

// Issue seals a new session claim for subject
func (c *Custodian) Issue(subject string) (string, *core.SessionClaim, error) {
	now := c.now()
	claim := &core.SessionClaim{
		ID:       uuid.New().String(),
		Subject:  subject,
		IssuedAt: now.Truncate(time.Second),
		Expiry:   now.Add(c.ttl).Truncate(time.Second),
	}
	if !claim.Expiry.After(now) {
		// Sub-second ttl truncated to nothing.
		claim.Expiry = now.Truncate(time.Second).Add(time.Second)
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   claim.Subject,
			ID:        claim.ID,
			ExpiresAt: jwt.NewNumericDate(claim.Expiry),
			IssuedAt:  jwt.NewNumericDate(claim.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)

	signedToken, err := token.SignedString(c.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, claim, nil
}

// Validate checks the token signature and expiry and returns its claim
func (c *Custodian) Validate(tokenStr string) (*core.SessionClaim, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithAudience(AudienceAccess),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("failed to parse token: %w", core.ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("failed to parse token: %w", core.ErrSignatureInvalid)
		default:
			return nil, fmt.Errorf("failed to parse token: %v: %w", err, core.ErrMalformedToken)
		}
	}

	if !token.Valid {
		return nil, core.ErrMalformedToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("invalid claims type: %w", core.ErrMalformedToken)
	}

	claim := &core.SessionClaim{
		ID:      claims.ID,
		Subject: claims.Subject,
		Expiry:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		claim.IssuedAt = claims.IssuedAt.Time
	}

	return claim, nil
}

// PublicKey returns the verification half of the signing key
func (c *Custodian) PublicKey() ed25519.PublicKey {
	return c.signKey.Public().(ed25519.PublicKey)
}
