package audit

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/layer-3/pqauth/core"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []core.AuditEntry
	err     error
}

func (p *recordingPublisher) PublishLogout(context.Context, string, string) error { return nil }

func (p *recordingPublisher) PublishAudit(_ context.Context, entry core.AuditEntry, _ core.AuditAction, _ string, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return p.err
}

func TestMemoryRecorder_AppendsDigestOfCanonicalString(t *testing.T) {
	r := NewMemoryRecorder(nil, nil)
	at := time.Unix(1_700_000_000, 0)

	require.NoError(t, r.Record(context.Background(), core.AuditLoggedIn, "alice", at))

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, core.AuditEntry(sha256.Sum256([]byte("User alice logged in at 1700000000"))), entries[0])
}

func TestMemoryRecorder_PreservesOrder(t *testing.T) {
	r := NewMemoryRecorder(nil, nil)
	at := time.Unix(1_700_000_000, 0)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, core.AuditRegistered, "alice", at))
	require.NoError(t, r.Record(ctx, core.AuditLoggedIn, "alice", at.Add(time.Second)))
	require.NoError(t, r.Record(ctx, core.AuditAuthorized, "alice", at.Add(2*time.Second)))

	assert.Equal(t, []core.AuditEntry{
		core.NewAuditEntry(core.AuditRegistered, "alice", at),
		core.NewAuditEntry(core.AuditLoggedIn, "alice", at.Add(time.Second)),
		core.NewAuditEntry(core.AuditAuthorized, "alice", at.Add(2*time.Second)),
	}, r.Entries())
}

func TestMemoryRecorder_StaysChronological(t *testing.T) {
	r := NewMemoryRecorder(nil, nil)
	at := time.Unix(1_700_000_000, 0)
	ctx := context.Background()

	// a caller stamped before the previous entry lost the race for the lock
	require.NoError(t, r.Record(ctx, core.AuditLoggedIn, "alice", at.Add(time.Second)))
	require.NoError(t, r.Record(ctx, core.AuditLoggedIn, "bob", at))

	assert.Equal(t, []core.AuditEntry{
		core.NewAuditEntry(core.AuditLoggedIn, "alice", at.Add(time.Second)),
		core.NewAuditEntry(core.AuditLoggedIn, "bob", at.Add(time.Second)),
	}, r.Entries())
}

func TestMemoryRecorder_EntriesIsACopy(t *testing.T) {
	r := NewMemoryRecorder(nil, nil)
	require.NoError(t, r.Record(context.Background(), core.AuditRegistered, "alice", time.Now()))

	entries := r.Entries()
	entries[0] = core.AuditEntry{}

	assert.NotEqual(t, core.AuditEntry{}, r.Entries()[0])
}

func TestMemoryRecorder_ConcurrentRecordsAreAllKept(t *testing.T) {
	r := NewMemoryRecorder(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Record(context.Background(), core.AuditAuthorized, "alice", time.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}

func TestMemoryRecorder_FanOut(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewMemoryRecorder(pub, nil)

	require.NoError(t, r.Record(context.Background(), core.AuditRegistered, "alice", time.Now()))

	assert.Equal(t, r.Entries(), pub.entries)
}

func TestMemoryRecorder_PublishFailureIsLogged(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := NewMemoryRecorder(pub, zap.New(obsCore))

	err := r.Record(context.Background(), core.AuditRegistered, "alice", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to publish audit entry").Len())
}
