package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/JohnDonavon/magic-app/internal/storage"
)

// jsonEncoder serializes nested fields to JSON text, collecting the first
// error instead of forcing error handling at every call site.
type jsonEncoder struct {
	err error
}

// encode returns the canonical JSON text of v, or nil when the field is
// absent. Absence must be decided by the caller (nil slice, nil map, nil
// pointer): a typed nil inside an interface value is not detectable here.
func (e *jsonEncoder) encode(v any, absent bool) any {
	if e.err != nil || absent {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return nil
	}
	return string(b)
}

// jsonDecoder parses JSON-text columns back into their nested shapes,
// wrapping the first failure in a SerializationError.
type jsonDecoder struct {
	table string
	id    string
	err   error
}

// decode parses src into dest when the column is non-NULL. A NULL column
// leaves dest untouched, preserving absence.
func (d *jsonDecoder) decode(column string, src sql.NullString, dest any) {
	if d.err != nil || !src.Valid {
		return
	}
	if err := json.Unmarshal([]byte(src.String), dest); err != nil {
		d.err = &storage.SerializationError{Table: d.table, Column: column, ID: d.id, Err: err}
	}
}

// boolToInt maps a flag to its 0/1 storage form.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
