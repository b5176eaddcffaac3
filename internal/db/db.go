// Package db stores emitted hook decisions in a project-local SQLite
// database for later inspection.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the decision history database.
type DB struct {
	*sql.DB
	path string
}

// Path returns the history database location for a project.
func Path(projectDir string) string {
	return filepath.Join(projectDir, ".hookguard", "history.db")
}

// Open opens (creating if needed) the history database and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	db := &DB{DB: conn, path: path}
	if err := db.configure(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying %s: %w", p, err)
		}
	}
	return nil
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL,
			tool TEXT NOT NULL DEFAULT '',
			command TEXT NOT NULL DEFAULT '',
			decision TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
		CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
