// Package journal persists the engine's emitted events to SQLite so the
// CLI can report on a tracking run after the fact. It plugs into the
// engine as an EventSink; the engine itself owns no persisted format.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Journal provides SQLite storage for tracking runs and their events.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath. Use ":memory:"
// for tests.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	// SQLite allows a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) createSchema() error {
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}
