// Package sqlite is an embedded store for small deployments and tests,
// backed by the pure-Go sqlite driver. It implements the same store
// interfaces as the postgres package.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"clubgov/apperr"
)

// Open opens (or creates) the database at dsn and bootstraps the schema.
// Use ":memory:" for an in-process throwaway store.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// The driver serializes access to one connection; more would race on
	// in-memory databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// createSchema is safe to call repeatedly.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS identities (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS identity_history (
    user_id INTEGER NOT NULL,
    identity_id TEXT NOT NULL REFERENCES identities(id),
    valid_from TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, identity_id, valid_from)
);

CREATE INDEX IF NOT EXISTS idx_identity_history_user ON identity_history(user_id);

CREATE TABLE IF NOT EXISTS ballots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL,
    description TEXT,
    anonymous INTEGER NOT NULL DEFAULT 0,
    multi_select INTEGER NOT NULL DEFAULT 0,
    closes_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS options (
    ballot_id INTEGER NOT NULL REFERENCES ballots(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    text TEXT NOT NULL,
    PRIMARY KEY (ballot_id, idx)
);

CREATE TABLE IF NOT EXISTS votes (
    ballot_id INTEGER NOT NULL REFERENCES ballots(id) ON DELETE CASCADE,
    option_idx INTEGER NOT NULL,
    identity_id TEXT NOT NULL REFERENCES identities(id),
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ballot_id, option_idx, identity_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_identity ON votes(ballot_id, identity_id);

CREATE TABLE IF NOT EXISTS aggregated_results (
    ballot_id INTEGER NOT NULL,
    option_idx INTEGER NOT NULL,
    votes_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP,
    PRIMARY KEY (ballot_id, option_idx)
);

CREATE TABLE IF NOT EXISTS meetings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance (
    meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    identity_id TEXT NOT NULL REFERENCES identities(id),
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (meeting_id, identity_id)
);
`

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Store("store_error", "sqlite operation failed", err)
}

// placeholders renders "?, ?, ?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
