// Package store provides the engine's embedded relational persistence:
// a single-file SQLite database holding configuration, sessions,
// messages, and branches. The connection is single-writer and owned by
// the process for its lifetime; schema evolution runs on every open and
// is a no-op once the schema is current.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/termai-dev/termai/internal/logging"
)

// Sentinel errors the service layer translates into apperr kinds.
// Callers never see raw SQL errors or SQL strings.
var (
	ErrNotFound         = errors.New("store: not found")
	ErrNoCurrentSession = errors.New("store: no current session")
)

// Config holds the options NewStore needs to open and tune the database.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout int // milliseconds
}

// DefaultConfig returns sensible defaults for a single-process engine.
func DefaultConfig(path string) Config {
	return Config{Path: path, WALMode: true, BusyTimeout: 5000}
}

// Store is the embedded relational store described by the data model:
// config, sessions, messages, and branches, all in one SQLite file.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open creates or opens the database file at cfg.Path, applies pragmas,
// and runs schema migration. Migration failures are fatal at process
// start per the engine's error-handling design.
func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d",
		cfg.Path, journalMode(cfg.WALMode), busyTimeout(cfg.BusyTimeout))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1) // single-writer, single connection

	if cfg.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			L_warn("store: failed to set WAL mode", "error", err)
		}
	}
	if cfg.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
			L_warn("store: failed to set busy_timeout", "error", err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func journalMode(wal bool) string {
	if wal {
		return "WAL"
	}
	return "DELETE"
}

func busyTimeout(ms int) int {
	if ms <= 0 {
		return 5000
	}
	return ms
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
