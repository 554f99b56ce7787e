package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// NewTestClient wraps an already-open database handle in a connected Client
// and brings its schema up to date. This helper is exported for use in other
// package tests; it lets fixtures run on any database/sql driver.
func NewTestClient(conn *sql.DB, migrations []Migration) (*Client, error) {
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	c := &Client{
		config:     DefaultConfig(":memory:"),
		migrations: migrations,
	}
	if err := c.migrate(context.Background(), conn); err != nil {
		return nil, err
	}

	c.conn = conn
	c.connected = true
	return c, nil
}
