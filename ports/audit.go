package ports

import (
	"context"
	"time"

	"github.com/layer-3/pqauth/core"
)

// AuditRecorder appends a content hash for each significant action.
type AuditRecorder interface {
	Record(ctx context.Context, action core.AuditAction, actor string, at time.Time) error
}
