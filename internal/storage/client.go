// Package storage owns the local SQLite database: one physical connection,
// a versioned migration chain, and the query primitives the repository
// layer is built on.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds database configuration settings.
type Config struct {
	// Path is the file path to the SQLite database.
	// Use ":memory:" for an in-memory database (useful for testing).
	Path string

	// BusyTimeout sets how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode.
	// Options: DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF
	// Default: WAL
	JournalMode string

	// Synchronous sets the SQLite synchronous mode.
	// Options: OFF, NORMAL, FULL, EXTRA
	// Default: NORMAL
	Synchronous string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
	}
}

// Client owns a single physical connection to the local store and runs the
// registered migration chain on Connect. All repository operations go
// through it; before a successful Connect they fail with ErrNotConnected.
//
// A Client is built once at app start and torn down at app end. It is not
// safe for use before Connect returns.
type Client struct {
	config     *Config
	migrations []Migration
	conn       *sql.DB
	connected  bool
}

// NewClient creates a client for the named store with an ordered migration
// list. Migrations are identified purely by position; new steps are always
// appended, never inserted or reordered.
func NewClient(config *Config, migrations []Migration) *Client {
	return &Client{
		config:     config,
		migrations: migrations,
	}
}

// dsn builds the driver connection string with the configured pragmas.
func (c *Client) dsn() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.config.BusyTimeout.Milliseconds()))
	q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.config.JournalMode))
	q.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.config.Synchronous))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_txlock", "immediate")
	return c.config.Path + "?" + q.Encode()
}

// Connect opens the store, enables foreign-key enforcement, and brings the
// schema up to date. It is idempotent: calling it on a connected client is a
// no-op.
//
// The stored schema version (PRAGMA user_version, 0 for a fresh store) is
// compared against the number of registered migrations. A stored version
// beyond the target fails with *DowngradeError and nothing else happens.
// Otherwise exactly the missing migrations run, in order, inside a single
// transaction; the version bump to the target is the last statement of that
// same transaction, so a failed step leaves the stored version untouched.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	if c.config == nil {
		return fmt.Errorf("storage: config cannot be nil")
	}

	if c.config.Path != ":memory:" {
		dir := filepath.Dir(c.config.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", c.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One physical connection: the transaction API is the only
	// mutual-exclusion mechanism this core provides.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := c.migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.connected = true
	return nil
}

// migrate applies the delta between the stored and target schema versions.
func (c *Client) migrate(ctx context.Context, conn *sql.DB) error {
	var stored int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	target := len(c.migrations)
	if stored > target {
		return &DowngradeError{Stored: stored, Target: target}
	}
	if stored == target {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	for i := stored; i < target; i++ {
		if err := c.migrations[i](ctx, tx); err != nil {
			_ = tx.Rollback()
			return &MigrationError{Step: i, Err: err}
		}
	}

	// PRAGMA does not accept bound parameters; target is an int we control.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}

// IsConnected reports whether Connect has completed successfully.
func (c *Client) IsConnected() bool {
	return c.connected
}

// DB returns the live connection handle, or nil if not connected.
func (c *Client) DB() *sql.DB {
	if !c.connected {
		return nil
	}
	return c.conn
}

// Path returns the configured database path.
func (c *Client) Path() string {
	return c.config.Path
}

// Query runs a row-returning statement. The caller owns the returned rows
// and must close them.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// Execute runs a write statement and returns the number of affected rows.
func (c *Client) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}
	result, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// GetFirst runs a query expected to return at most one row. Scanning the
// returned row yields sql.ErrNoRows when the result set is empty.
func (c *Client) GetFirst(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	return c.conn.QueryRowContext(ctx, query, args...), nil
}

// Exists checks whether the store's backing file is present without
// opening it. An in-memory store never exists on disk.
func (c *Client) Exists() (bool, error) {
	if c.config.Path == ":memory:" {
		return false, nil
	}
	_, err := os.Stat(c.config.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat database file: %w", err)
	}
	return true, nil
}

// Delete closes the connection (if open) and removes the backing store
// entirely, including WAL sidecar files.
func (c *Client) Delete() error {
	if err := c.Close(); err != nil {
		return err
	}
	if c.config.Path == ":memory:" {
		return nil
	}
	for _, path := range []string{c.config.Path, c.config.Path + "-wal", c.config.Path + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.conn == nil {
		c.connected = false
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
