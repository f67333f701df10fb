package ports

import (
	"context"
	"time"
)

// RevocationStore records session tokens revoked before their expiry.
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
