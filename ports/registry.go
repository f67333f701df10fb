package ports

import (
	"context"

	"github.com/layer-3/pqauth/core"
)

// IdentityRegistry is the durable mapping from digital id to public key.
// Implementations validate the key before insertion and serialize the
// duplicate check with the insert.
type IdentityRegistry interface {
	Register(ctx context.Context, identity *core.DigitalIdentity) error
	Lookup(ctx context.Context, id string) (*core.DigitalIdentity, error)
}
