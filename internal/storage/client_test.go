package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}

	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}

	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}

	if config.Synchronous != "NORMAL" {
		t.Errorf("expected Synchronous 'NORMAL', got '%s'", config.Synchronous)
	}
}

func TestConnect(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), Migrations())
	ctx := context.Background()

	if client.IsConnected() {
		t.Error("expected client to start disconnected")
	}
	if client.DB() != nil {
		t.Error("expected nil DB before connect")
	}

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("expected client to be connected")
	}
	if client.DB() == nil {
		t.Error("expected non-nil DB after connect")
	}
}

func TestConnectIdempotent(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), Migrations())
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	db := client.DB()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}
	if client.DB() != db {
		t.Error("expected second connect to be a no-op")
	}
}

func TestConnectWithNilConfig(t *testing.T) {
	client := NewClient(nil, Migrations())
	if err := client.Connect(context.Background()); err == nil {
		t.Error("expected error with nil config")
	}
}

func TestConnectCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	client := NewClient(DefaultConfig(path), Migrations())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file at %s: %v", path, err)
	}
}

func schemaVersion(t *testing.T, client *Client) int {
	t.Helper()
	var version int
	row, err := client.GetFirst(context.Background(), "PRAGMA user_version")
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if err := row.Scan(&version); err != nil {
		t.Fatalf("failed to scan schema version: %v", err)
	}
	return version
}

func TestMigrationsRunOnConnect(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), Migrations())
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if got, want := schemaVersion(t, client), len(Migrations()); got != want {
		t.Errorf("expected schema version %d, got %d", want, got)
	}

	for _, table := range []string{"cards", "decks", "deck_cards"} {
		var name string
		row, err := client.GetFirst(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		if err := row.Scan(&name); err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestMigrationsResumeFromStoredVersion(t *testing.T) {
	path := testPath(t)
	ctx := context.Background()

	first := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE items (id TEXT PRIMARY KEY)"),
	})
	if err := first.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if _, err := first.Execute(ctx, "INSERT INTO items (id) VALUES ('a')"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	// Step 0 would fail if it reran; only the missing tail may run.
	applied := 0
	second := NewClient(DefaultConfig(path), []Migration{
		func(ctx context.Context, tx *sql.Tx) error {
			return errors.New("step 0 must not rerun")
		},
		func(ctx context.Context, tx *sql.Tx) error {
			applied++
			_, err := tx.ExecContext(ctx, "ALTER TABLE items ADD COLUMN label TEXT")
			return err
		},
	})
	if err := second.Connect(ctx); err != nil {
		t.Fatalf("failed to reconnect: %v", err)
	}
	defer second.Close()

	if applied != 1 {
		t.Errorf("expected exactly 1 new migration to run, got %d", applied)
	}
	if got := schemaVersion(t, second); got != 2 {
		t.Errorf("expected schema version 2, got %d", got)
	}

	var id string
	row, err := second.GetFirst(ctx, "SELECT id FROM items")
	if err != nil {
		t.Fatalf("failed to query items: %v", err)
	}
	if err := row.Scan(&id); err != nil || id != "a" {
		t.Errorf("expected existing row to survive migration, got %q (%v)", id, err)
	}
}

func TestConnectRefusesDowngrade(t *testing.T) {
	path := testPath(t)
	ctx := context.Background()

	newer := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE a (id TEXT)"),
		SQLBatch("CREATE TABLE b (id TEXT)"),
	})
	if err := newer.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := newer.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	older := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE a (id TEXT)"),
	})
	err := older.Connect(ctx)
	if err == nil {
		older.Close()
		t.Fatal("expected downgrade error")
	}
	if !IsDowngrade(err) {
		t.Errorf("expected DowngradeError, got %v", err)
	}

	var de *DowngradeError
	if errors.As(err, &de) {
		if de.Stored != 2 || de.Target != 1 {
			t.Errorf("expected stored=2 target=1, got stored=%d target=%d", de.Stored, de.Target)
		}
	}
	if older.IsConnected() {
		t.Error("expected client to stay disconnected after downgrade")
	}

	// The refused connect must not have touched the stored version.
	verify := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE a (id TEXT)"),
		SQLBatch("CREATE TABLE b (id TEXT)"),
	})
	if err := verify.Connect(ctx); err != nil {
		t.Fatalf("failed to reconnect with matching migrations: %v", err)
	}
	defer verify.Close()
	if got := schemaVersion(t, verify); got != 2 {
		t.Errorf("expected stored version to remain 2, got %d", got)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	path := testPath(t)
	ctx := context.Background()

	broken := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE survivors (id TEXT PRIMARY KEY)"),
		SQLBatch("INSERT INTO missing_table (id) VALUES ('x')"),
	})
	err := broken.Connect(ctx)
	if err == nil {
		broken.Close()
		t.Fatal("expected migration failure")
	}

	var me *MigrationError
	if !errors.As(err, &me) {
		t.Fatalf("expected MigrationError, got %v", err)
	}
	if me.Step != 1 {
		t.Errorf("expected failure at step 1, got %d", me.Step)
	}

	// Both steps ran in one transaction, so step 0 rolled back too.
	fixed := NewClient(DefaultConfig(path), []Migration{
		SQLBatch("CREATE TABLE survivors (id TEXT PRIMARY KEY)"),
		SQLBatch("CREATE TABLE second (id TEXT PRIMARY KEY)"),
	})
	if err := fixed.Connect(ctx); err != nil {
		t.Fatalf("failed to connect after fixing migrations: %v", err)
	}
	defer fixed.Close()

	if got := schemaVersion(t, fixed); got != 2 {
		t.Errorf("expected schema version 2 after recovery, got %d", got)
	}
}

func TestOperationsRequireConnect(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), Migrations())
	ctx := context.Background()

	if _, err := client.Query(ctx, "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Query: expected ErrNotConnected, got %v", err)
	}
	if _, err := client.Execute(ctx, "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Execute: expected ErrNotConnected, got %v", err)
	}
	if _, err := client.GetFirst(ctx, "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("GetFirst: expected ErrNotConnected, got %v", err)
	}
	if err := client.WithTransaction(ctx, func(*sql.Tx) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WithTransaction: expected ErrNotConnected, got %v", err)
	}
	if err := client.ExecBatch(ctx, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ExecBatch: expected ErrNotConnected, got %v", err)
	}
}

func TestExecuteReturnsAffectedRows(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), []Migration{
		SQLBatch("CREATE TABLE items (id TEXT PRIMARY KEY)"),
	})
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := client.Execute(ctx, "INSERT INTO items (id) VALUES (?)", id); err != nil {
			t.Fatalf("failed to insert %s: %v", id, err)
		}
	}

	affected, err := client.Execute(ctx, "DELETE FROM items WHERE id != ?", "a")
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if affected != 2 {
		t.Errorf("expected 2 affected rows, got %d", affected)
	}
}

func TestGetFirstNoRows(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), []Migration{
		SQLBatch("CREATE TABLE items (id TEXT PRIMARY KEY)"),
	})
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	row, err := client.GetFirst(ctx, "SELECT id FROM items WHERE id = ?", "nope")
	if err != nil {
		t.Fatalf("GetFirst failed: %v", err)
	}
	var id string
	if err := row.Scan(&id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), []Migration{
		SQLBatch("CREATE TABLE items (id TEXT PRIMARY KEY)"),
	})
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	wantErr := errors.New("abort")
	err := client.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (id) VALUES ('x')"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped abort error, got %v", err)
	}

	var count int
	row, _ := client.GetFirst(ctx, "SELECT COUNT(*) FROM items")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to remove the row, got %d rows", count)
	}
}

func TestExecBatchAtomic(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), []Migration{
		SQLBatch("CREATE TABLE items (id TEXT PRIMARY KEY)"),
	})
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	err := client.ExecBatch(ctx, []Statement{
		{SQL: "INSERT INTO items (id) VALUES (?)", Args: []any{"a"}},
		{SQL: "INSERT INTO items (id) VALUES (?)", Args: []any{"b"}},
		{SQL: "INSERT INTO items (id) VALUES (?)", Args: []any{"a"}}, // duplicate key
	})
	if err == nil {
		t.Fatal("expected batch to fail on duplicate key")
	}
	if !IsConstraintViolation(err) {
		t.Errorf("expected constraint violation, got %v", err)
	}

	var count int
	row, _ := client.GetFirst(ctx, "SELECT COUNT(*) FROM items")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no rows after failed batch, got %d", count)
	}

	if err := client.ExecBatch(ctx, []Statement{
		{SQL: "INSERT INTO items (id) VALUES (?)", Args: []any{"a"}},
		{SQL: "INSERT INTO items (id) VALUES (?)", Args: []any{"b"}},
	}); err != nil {
		t.Fatalf("expected batch to succeed: %v", err)
	}

	row, _ = client.GetFirst(ctx, "SELECT COUNT(*) FROM items")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows after successful batch, got %d", count)
	}
}

func TestExistsAndDelete(t *testing.T) {
	path := testPath(t)
	client := NewClient(DefaultConfig(path), Migrations())
	ctx := context.Background()

	exists, err := client.Exists()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected store not to exist before connect")
	}

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	exists, err = client.Exists()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected store to exist after connect")
	}

	if err := client.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected client to be disconnected after delete")
	}

	exists, err = client.Exists()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected store not to exist after delete")
	}
	for _, sidecar := range []string{path + "-wal", path + "-shm"} {
		if _, err := os.Stat(sidecar); !os.IsNotExist(err) {
			t.Errorf("expected sidecar %s to be removed", sidecar)
		}
	}
}

func TestExistsInMemory(t *testing.T) {
	client := NewClient(DefaultConfig(":memory:"), Migrations())
	exists, err := client.Exists()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected in-memory store to never exist on disk")
	}
}

func TestCloseIdempotent(t *testing.T) {
	client := NewClient(DefaultConfig(testPath(t)), Migrations())

	if err := client.Close(); err != nil {
		t.Errorf("close on never-connected client failed: %v", err)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestDowngradeErrorMessage(t *testing.T) {
	err := &DowngradeError{Stored: 5, Target: 2}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	for _, want := range []string{"5", "2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to mention %s: %q", want, msg)
		}
	}
}