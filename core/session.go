package core

import "time"

// SessionClaim is the assertion sealed inside a session token.
type SessionClaim struct {
	ID       string    // unique token identifier (jti)
	Subject  string    // digital id of the authenticated identity
	IssuedAt time.Time // when the token was minted
	Expiry   time.Time // token is valid while Expiry is after now
}

// AuthState is the per-challenge protocol state.
type AuthState int

const (
	Unauthenticated AuthState = iota
	ChallengeIssued
	Authenticated
	Rejected
)

func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case ChallengeIssued:
		return "challenge_issued"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}
