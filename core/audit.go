package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// AuditAction names a recorded action.
type AuditAction string

const (
	AuditRegistered AuditAction = "registered"
	AuditLoggedIn   AuditAction = "logged in"
	AuditAuthorized AuditAction = "authorized"
	AuditLoggedOut  AuditAction = "logged out"
)

// AuditEntry is the SHA-256 digest of one action's canonical description.
// Each entry covers only its own content; entries are not chained.
type AuditEntry [sha256.Size]byte

// CanonicalAuditString renders the human-readable description that gets hashed.
func CanonicalAuditString(action AuditAction, actor string, at time.Time) string {
	return fmt.Sprintf("User %s %s at %d", actor, action, at.Unix())
}

// NewAuditEntry hashes the canonical description of an action.
func NewAuditEntry(action AuditAction, actor string, at time.Time) AuditEntry {
	return sha256.Sum256([]byte(CanonicalAuditString(action, actor, at)))
}

func (e AuditEntry) String() string {
	return hex.EncodeToString(e[:])
}
