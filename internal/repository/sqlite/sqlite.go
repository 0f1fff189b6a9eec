// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without CGo. The schema lives in migrations/ as goose SQL files embedded into
// the binary and applied on every start (already-applied versions are skipped).
//
// PER-CONNECTION PRAGMAS:
// database/sql keeps a pool of connections and SQLite applies PRAGMA statements
// to one connection only. foreign_keys must be ON for every connection or the
// ON DELETE CASCADE from users to accounts silently stops working, so the
// pragmas are passed in the DSN, which the driver replays on each new connection.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/sakif/botpanel/internal/secret"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn   *sql.DB
	sealer *secret.Sealer
	logger *slog.Logger
}

// New opens the database at dbPath, applies pending migrations and returns a
// ready DB. sealer encrypts account tokens at rest; nil stores them unchanged.
//
// dbPath is a file path such as "data/panel.db". Tests use a file under
// t.TempDir() so every test gets its own database.
func New(dbPath string, sealer *secret.Sealer) (*DB, error) {
	if sealer == nil {
		sealer = secret.Plaintext()
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, sealer: sealer, logger: slog.Default()}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
	}
	return "file:" + dbPath + "?" + strings.Join(pragmas, "&")
}

// migrate applies every embedded goose migration that has not run yet.
func (db *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("locating migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
