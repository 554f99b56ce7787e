package storage

import (
	"errors"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// ErrNotConnected is returned by any data operation invoked before a
// successful Connect. It is never retried automatically.
var ErrNotConnected = errors.New("storage: database not connected")

// DowngradeError means the stored schema version is newer than this build
// knows how to handle: the installed app is older than the data on disk.
// It is fatal to normal operation and must be surfaced distinctly so the
// caller can offer a recovery path (reinstall, clear data) instead of a
// generic retry.
type DowngradeError struct {
	Stored int
	Target int
}

// Error implements the error interface.
func (e *DowngradeError) Error() string {
	return fmt.Sprintf("storage: stored schema version %d exceeds supported version %d (downgrade not supported)", e.Stored, e.Target)
}

// IsDowngrade reports whether err is (or wraps) a DowngradeError.
func IsDowngrade(err error) bool {
	var de *DowngradeError
	return errors.As(err, &de)
}

// MigrationError means a statement inside migration step Step failed. The
// whole Connect attempt was rolled back and the stored version is unchanged,
// so a later Connect resumes from the same point.
type MigrationError struct {
	Step int
	Err  error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("storage: migration step %d failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying statement error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// SerializationError means a JSON-text column could not be parsed back into
// its nested shape on read. This indicates corruption of the stored row;
// callers should not assume partial recovery.
type SerializationError struct {
	Table  string
	Column string
	ID     string
	Err    error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("storage: malformed %s.%s for row %s: %v", e.Table, e.Column, e.ID, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsConstraintViolation reports whether err was caused by a SQLite
// constraint failure (foreign key, unique, not null, check).
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	// Test fixtures run on a different driver; fall back to the message.
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}
