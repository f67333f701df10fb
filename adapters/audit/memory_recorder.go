package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/ports"
)

// MemoryRecorder is an in-memory, append-only implementation of the
// AuditRecorder interface. Entries are independent digests, not a chain.
type MemoryRecorder struct {
	entries []core.AuditEntry
	last    time.Time
	mu      sync.RWMutex

	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewMemoryRecorder creates a new in-memory recorder. publisher may be nil.
func NewMemoryRecorder(publisher ports.EventPublisher, logger *zap.Logger) *MemoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryRecorder{
		publisher: publisher,
		logger:    logger.Named("audit"),
	}
}

var _ ports.AuditRecorder = (*MemoryRecorder)(nil)

// Record appends the digest of the action. Entries stay in chronological
// order: a timestamp older than the previous entry's is raised to it. A failed
// fan-out never fails the call.
func (r *MemoryRecorder) Record(ctx context.Context, action core.AuditAction, actor string, at time.Time) error {
	r.mu.Lock()
	if at.Before(r.last) {
		at = r.last
	}
	r.last = at
	entry := core.NewAuditEntry(action, actor, at)
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	if r.publisher == nil {
		return nil
	}
	if err := r.publisher.PublishAudit(ctx, entry, action, actor, at); err != nil {
		r.logger.Warn("failed to publish audit entry",
			zap.String("entry", entry.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
	return nil
}

// Entries returns a copy of the log in recording order
func (r *MemoryRecorder) Entries() []core.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries
func (r *MemoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
