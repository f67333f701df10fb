package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// Dependencies are the capabilities the AuthService orchestrates.
// Revocations and Events are optional.
type Dependencies struct {
	Registry    ports.IdentityRegistry
	Challenges  *ChallengeIssuer
	Verifier    ports.SignatureVerifier
	KEM         ports.KeyEncapsulator
	Authority   ports.TokenAuthority
	Audit       ports.AuditRecorder
	Revocations ports.RevocationStore
	Events      ports.EventPublisher
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token string
	Claim *core.SessionClaim
}

// AuthService handles authentication business logic
type AuthService struct {
	registry    ports.IdentityRegistry
	challenges  *ChallengeIssuer
	verifier    ports.SignatureVerifier
	kem         ports.KeyEncapsulator
	authority   ports.TokenAuthority
	audit       ports.AuditRecorder
	revocations ports.RevocationStore
	eventPub    ports.EventPublisher

	logger *zap.Logger
	now    func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used for audit timestamps and revocations.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(deps Dependencies, opts ...Option) (*AuthService, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("auth service: registry is required")
	case deps.Challenges == nil:
		return nil, errors.New("auth service: challenge issuer is required")
	case deps.Verifier == nil:
		return nil, errors.New("auth service: signature verifier is required")
	case deps.KEM == nil:
		return nil, errors.New("auth service: key encapsulator is required")
	case deps.Authority == nil:
		return nil, errors.New("auth service: token authority is required")
	case deps.Audit == nil:
		return nil, errors.New("auth service: audit recorder is required")
	}

	s := &AuthService{
		registry:    deps.Registry,
		challenges:  deps.Challenges,
		verifier:    deps.Verifier,
		kem:         deps.KEM,
		authority:   deps.Authority,
		audit:       deps.Audit,
		revocations: deps.Revocations,
		eventPub:    deps.Events,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("auth")

	return s, nil
}

// PublicKey returns the key that verifies session tokens
func (s *AuthService) PublicKey() []byte {
	return s.authority.PublicKey()
}

// Register adds a new digital identity to the registry
func (s *AuthService) Register(ctx context.Context, digitalID string) (*core.DigitalIdentity, error) {
	identity, err := core.ParseDigitalID(digitalID)
	if err != nil {
		s.logger.Info("registration rejected", zap.String("reason", "invalid digital id"), zap.Error(err))
		return nil, err
	}

	if err := s.registry.Register(ctx, identity); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			s.logger.Info("registration rejected", zap.String("reason", "duplicate"), zap.String("digital_id", digitalID))
			return nil, err
		}
		return nil, fmt.Errorf("failed to register identity: %w", err)
	}

	s.record(ctx, core.AuditRegistered, identity.ID)
	s.logger.Info("identity registered", zap.String("digital_id", identity.ID))

	return identity, nil
}

// RequestChallenge issues an identity-agnostic challenge. The identity is
// supplied again at login.
func (s *AuthService) RequestChallenge(ctx context.Context) (*core.Challenge, error) {
	challenge, err := s.challenges.Issue(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("auth state",
		zap.Stringer("state", core.ChallengeIssued),
		zap.Time("expires_at", challenge.Expiry))

	return challenge, nil
}

// Login authenticates an identity using a signed challenge
func (s *AuthService) Login(ctx context.Context, digitalID, nonce, signature string) (*LoginResult, error) {
	// Malformed input is rejected before any state changes.
	claimed, err := core.ParseDigitalID(digitalID)
	if err != nil {
		return nil, err
	}
	if _, err := core.DecodeNonce(nonce); err != nil {
		return nil, err
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return nil, err
	}

	identity, err := s.registry.Lookup(ctx, claimed.ID)
	if err != nil {
		return nil, s.reject("unknown identity", digitalID, err)
	}

	challenge, err := s.challenges.TakeAndConsume(ctx, nonce)
	if err != nil {
		return nil, s.reject("challenge unusable", digitalID, err)
	}

	// The challenge is already consumed; a failed signature cannot be retried.
	if err := s.verifier.Verify(identity.PublicKey, challenge.Value, sig); err != nil {
		return nil, s.reject("signature verification failed", digitalID, err)
	}

	if err := s.ephemeralKeyExchange(); err != nil {
		return nil, err
	}

	token, claim, err := s.authority.Issue(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.record(ctx, core.AuditLoggedIn, identity.ID)
	s.logger.Info("auth state",
		zap.Stringer("state", core.Authenticated),
		zap.String("digital_id", identity.ID),
		zap.String("session_id", claim.ID))

	return &LoginResult{Token: token, Claim: claim}, nil
}

// Authorize resolves a bearer token to the identity it was issued for
func (s *AuthService) Authorize(ctx context.Context, token string) (*core.DigitalIdentity, error) {
	claim, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := s.registry.Lookup(ctx, claim.Subject)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			s.logAuthFailure("token subject not registered", claim.Subject, err)
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}

	s.record(ctx, core.AuditAuthorized, identity.ID)

	return identity, nil
}

// Logout revokes a session token until its natural expiry
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.revocations == nil {
		return errors.New("logout requires a revocation store")
	}

	claim, err := s.validate(ctx, token)
	if err != nil {
		return err
	}

	remaining := claim.Expiry.Sub(s.now())
	if err := s.revocations.InvalidateToken(ctx, claim.ID, remaining); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, claim.Subject, claim.ID); err != nil {
			// The revocation is already stored; the event only informs other instances.
			s.logger.Warn("failed to publish logout event", zap.String("session_id", claim.ID), zap.Error(err))
		}
	}

	s.record(ctx, core.AuditLoggedOut, claim.Subject)
	s.logger.Info("session revoked", zap.String("digital_id", claim.Subject), zap.String("session_id", claim.ID))

	return nil
}

func (s *AuthService) validate(ctx context.Context, token string) (*core.SessionClaim, error) {
	claim, err := s.authority.Validate(token)
	if err != nil {
		s.logAuthFailure("invalid token", "", err)
		return nil, err
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsTokenInvalidated(ctx, claim.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			s.logAuthFailure("token revoked", claim.Subject, core.ErrTokenRevoked)
			return nil, core.ErrTokenRevoked
		}
	}

	return claim, nil
}

// ephemeralKeyExchange runs the post-quantum key encapsulation step. The
// shared secret has no consumer yet and is wiped before returning.
func (s *AuthService) ephemeralKeyExchange() error {
	ek, _, err := s.kem.GenerateEphemeralKeypair()
	if err != nil {
		return fmt.Errorf("failed to generate ephemeral keypair: %w", err)
	}

	_, sharedSecret, err := s.kem.Encapsulate(ek)
	if err != nil {
		return fmt.Errorf("failed to encapsulate session key: %w", err)
	}
	clear(sharedSecret)

	return nil
}

func (s *AuthService) record(ctx context.Context, action core.AuditAction, actor string) {
	if err := s.audit.Record(ctx, action, actor, s.now()); err != nil {
		s.logger.Error("failed to record audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *AuthService) reject(reason, digitalID string, err error) error {
	s.logAuthFailure(reason, digitalID, err)
	if core.KindOf(err) == core.KindInternal {
		return fmt.Errorf("%s: %w", reason, err)
	}
	return err
}

func (s *AuthService) logAuthFailure(reason, digitalID string, err error) {
	s.logger.Warn("auth state",
		zap.Stringer("state", core.Rejected),
		zap.String("reason", reason),
		zap.String("digital_id", digitalID),
		zap.Error(err))
}

func decodeSignature(signature string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", core.ErrMalformedSignature)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("signature is %d bytes, want %d: %w", len(sig), ed25519.SignatureSize, core.ErrMalformedSignature)
	}
	return sig, nil
}
