package ports

import (
	"context"
	"time"

	"github.com/layer-3/pqauth/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, subject string, tokenID string) error
	PublishAudit(ctx context.Context, entry core.AuditEntry, action core.AuditAction, actor string, at time.Time) error
}
