// Package index provides a SQLite-backed index of parsed items, tags and fragments.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
	path    TEXT NOT NULL,
	ord     INTEGER NOT NULL,
	parent  INTEGER NOT NULL DEFAULT -1,
	content TEXT NOT NULL DEFAULT '',
	tags    TEXT NOT NULL DEFAULT '[]',
	line    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (path, ord)
);

CREATE TABLE IF NOT EXISTS item_tags (
	path TEXT NOT NULL,
	ord  INTEGER NOT NULL,
	tag  TEXT NOT NULL,
	UNIQUE(path, ord, tag)
);

CREATE TABLE IF NOT EXISTS fragments (
	path    TEXT NOT NULL,
	name    TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (path, name)
);

CREATE TABLE IF NOT EXISTS refs (
	path TEXT NOT NULL,
	ord  INTEGER NOT NULL,
	name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag);
CREATE INDEX IF NOT EXISTS idx_refs_name ON refs(path, name);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
