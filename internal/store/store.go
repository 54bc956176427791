// Package store implements the Memory Store: a durable, WAL-mode SQLite
// relational store for conversation turns, execution traces, tool-execution
// records, the user profile, session summaries, external-chat mappings and
// scheduled jobs. A single writer lock serializes writes while reads proceed
// concurrently against committed state, mirroring LocalStore's concurrency
// model.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hearth/internal/logging"
)

// Store is the Memory Store. All write paths take writeMu; reads take the
// database's own connection pool, which is safe for concurrent use once WAL
// mode is enabled.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	path    string
	now     func() time.Time
}

// Open creates (or opens) the SQLite database at path, enables WAL mode, and
// runs migrations. now defaults to time.Now and is overridable in tests so
// decay/cleanup windows are deterministic.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY under WAL for this process's
	// own writes; the OS-level WAL still lets other readers proceed.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Warn("store: pragma %q failed: %v", pragma, err)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logging.Get(logging.CategoryStore).Info("store opened at %s", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection so the Semantic Retriever can share
// it for its sqlite-vec table, rather than open a second connection against
// the same WAL file.
func (s *Store) DB() *sql.DB {
	return s.db
}
