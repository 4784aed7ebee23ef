// Package audit is the kernel's optional, disabled-by-default persistence
// layer: a SQLite-backed (modernc.org/sqlite, pure Go, no cgo) append log
// of ValidationTokens and ExecutionSummarys. It never stores builder state,
// so restoring from it can never bypass the sealed-ValidatedGraph
// invariant — everything it records already passed construction or
// execution.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/latticeforge/kernel/internal/audit/migrations"
)

// DB wraps a SQLite connection backing the append log.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path and runs
// its embedded migrations. path may be ":memory:" for an ephemeral store,
// useful in tests and in the simulator.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid lock contention

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: ping %s: %w", path, err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.runMigrations(ctx, migrations.FS); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// runMigrations executes all SQL migration files from the provided
// filesystem in order, mirroring the forward-only runner the rest of this
// kernel's wider pack uses for its own Postgres store, scaled down to a
// single-process, no-server target.
func (db *DB) runMigrations(ctx context.Context, migrationsFS fs.FS) error {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("audit: read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, entry.Name())
		if err != nil {
			return fmt.Errorf("audit: read migration %s: %w", entry.Name(), err)
		}

		if db.logger != nil {
			db.logger.Info("audit: running migration", "file", entry.Name())
		}
		if _, err := db.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("audit: execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}
