package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/layer-3/pqauth/core"
)

// SQLiteRegistry keeps identities in a relational table.
type SQLiteRegistry struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteRegistry opens (or creates) the database at path and ensures the
// identities table exists. Parent directories are created if needed.
func NewSQLiteRegistry(path string, logger *zap.Logger) (*SQLiteRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("registry")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers; SQLite would otherwise report
	// SQLITE_BUSY instead of a constraint violation under contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	r := &SQLiteRegistry{db: db, logger: logger, now: time.Now}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite registry initialized", zap.String("path", path))
	return r, nil
}

func (r *SQLiteRegistry) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS identities (
			id            TEXT PRIMARY KEY,
			public_key    BLOB NOT NULL,
			registered_at TEXT NOT NULL
		);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database connection
func (r *SQLiteRegistry) Close() error {
	r.logger.Info("closing SQLite registry")
	return r.db.Close()
}

// Register inserts the identity. The primary key makes the duplicate check and
// the insert a single statement.
func (r *SQLiteRegistry) Register(ctx context.Context, identity *core.DigitalIdentity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	registeredAt := identity.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, public_key, registered_at) VALUES (?, ?, ?)`,
		identity.ID,
		identity.PublicKey,
		registeredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return core.ErrAlreadyExists
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	identity.RegisteredAt = registeredAt
	r.logger.Debug("registered identity", zap.String("id", identity.ID))
	return nil
}

// Lookup retrieves an identity by digital id.
func (r *SQLiteRegistry) Lookup(ctx context.Context, id string) (*core.DigitalIdentity, error) {
	var (
		identity        core.DigitalIdentity
		registeredAtStr string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, public_key, registered_at FROM identities WHERE id = ?`, id,
	).Scan(&identity.ID, &identity.PublicKey, &registeredAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("querying identity: %w", err)
	}

	identity.RegisteredAt, err = time.Parse(time.RFC3339Nano, registeredAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing registered_at: %w", err)
	}

	return &identity, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE/PRIMARY KEY violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
