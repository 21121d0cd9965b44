// Package db owns the SQLite database handle shared by the ledger and the
// snapshot store. The schema is embedded and applied idempotently on open;
// migrations beyond the baseline run through golang-migrate.
package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the inventory database at path and
// applies the embedded baseline schema. Use ":memory:" for tests.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	// The engine serializes frame commits itself; a single connection
	// avoids SQLITE_BUSY between ledger appends and snapshot upserts
	// inside one commit.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DB{db}, nil
}
