package store

import (
	"database/sql"
	"fmt"
	"time"
)

func scanSession(row *sql.Row) (*Session, error) {
	var (
		id, name, expiresAt string
		current              int
	)
	if err := row.Scan(&id, &name, &expiresAt, &current); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rowToSession(id, name, expiresAt, current)
}

func rowToSession(id, name, expiresAt string, current int) (*Session, error) {
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse expires_at: %w", err)
	}
	return &Session{ID: id, Name: name, ExpiresAt: t, Current: current != 0}, nil
}

// FetchAllSessions returns every session row, oldest first by rowid
// (insertion order is not otherwise tracked).
func (s *Store) FetchAllSessions() ([]*Session, error) {
	rows, err := s.db.Query(`SELECT id, name, expires_at, current FROM sessions ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var (
			id, name, expiresAt string
			current              int
		)
		if err := rows.Scan(&id, &name, &expiresAt, &current); err != nil {
			return nil, err
		}
		sess, err := rowToSession(id, name, expiresAt, current)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// FetchSessionByID returns the session with the given id, or ErrNotFound.
func (s *Store) FetchSessionByID(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, name, expires_at, current FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// FetchSessionByName returns the first session (by insertion order) with
// the given name, or ErrNotFound. Names are not required to be unique;
// callers seeking uniqueness must enforce it.
func (s *Store) FetchSessionByName(name string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, name, expires_at, current FROM sessions WHERE name = ? ORDER BY rowid ASC LIMIT 1`, name)
	return scanSession(row)
}

// FetchCurrentSession returns the exactly-one session with current = 1,
// or ErrNoCurrentSession.
func (s *Store) FetchCurrentSession() (*Session, error) {
	row := s.db.QueryRow(`SELECT id, name, expires_at, current FROM sessions WHERE current = 1 LIMIT 1`)
	sess, err := scanSession(row)
	if err == ErrNotFound {
		return nil, ErrNoCurrentSession
	}
	return sess, err
}

// RemoveCurrentFromAll clears the current flag on every session in a
// single UPDATE, the first half of session_add's clear-then-insert
// sequence.
func (s *Store) RemoveCurrentFromAll() error {
	_, err := s.db.Exec(`UPDATE sessions SET current = 0 WHERE current = 1`)
	return err
}

// AddSession inserts a new session row. Callers are expected to have
// already called RemoveCurrentFromAll when the new session should become
// the sole current one.
func (s *Store) AddSession(sess *Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, session_key, name, expires_at, current) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Name, sess.ExpiresAt.UTC().Format(time.RFC3339), boolToInt(sess.Current),
	)
	return err
}

// UpdateSession writes back a session's mutable fields (expiry, current
// flag). Returns ErrNotFound if no row matched.
func (s *Store) UpdateSession(sess *Session) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET expires_at = ?, current = ? WHERE id = ?`,
		sess.ExpiresAt.UTC().Format(time.RFC3339), boolToInt(sess.Current), sess.ID,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// DeleteSession deletes a session and cascades to its messages,
// branches, and branch_messages within a single transaction. Fails with
// ErrNotFound if the session row didn't exist.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM branch_messages WHERE branch_id IN (SELECT id FROM branches WHERE session_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM branches WHERE session_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
