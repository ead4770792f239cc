// Package index maintains a rebuildable SQLite projection over the
// workspace's YAML/JSONL truth (4.G): run/event/review/pending-review
// tables that exist purely to make "what's pending", "what failed", and
// "how much did this cost" fast to query, never as a second source of
// truth.
package index

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/CLIAIMONITOR/internal/obslog"
)

//go:embed schema.sql
var schemaSQL string

var log = obslog.New("index")

// Store wraps the workspace's projection database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index database at path and applies
// schema.sql. If the existing file is schema-incompatible with this
// build, it is deleted and rebuilt fresh — the index is always
// disposable, recoverable in full from events.jsonl/run.yaml/etc.
func Open(path string) (*Store, error) {
	store, err := openDB(path)
	if err != nil {
		if isSchemaMismatch(err) {
			log.Warnf("index db schema mismatch at %s, rebuilding: %v", path, err)
			os.Remove(path)
			os.Remove(path + "-wal")
			os.Remove(path + "-shm")
			return openDB(path)
		}
		return nil, err
	}
	return store, nil
}

func isSchemaMismatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "SQL logic error")
}

func openDB(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index db directory: %w", err)
	}

	connStr := "file:" + strings.ReplaceAll(path, " ", "%20") + "?_time_format=sqlite"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying *sql.DB for callers that need raw access.
func (s *Store) DB() *sql.DB { return s.db }

// Reset drops every row from every table without dropping the schema
// itself, the first step of a full rebuild. run_usage and context_cycles
// reference runs(id) with foreign keys on, so they are emptied first.
func (s *Store) Reset() error {
	tables := []string{
		"sources", "run_usage", "context_cycles", "runs",
		"events", "event_parse_errors", "reviews", "pending_reviews",
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.Exec("DELETE FROM " + t); err != nil {
			tx.Rollback()
			return fmt.Errorf("reset table %s: %w", t, err)
		}
	}
	return tx.Commit()
}
