package store

import (
	"database/sql"
	"time"
)

// Checkpoint is a persisted row from the checkpoints table: a rolling
// structured summary created opportunistically ahead of compaction.
type Checkpoint struct {
	ID               string
	SessionID        string
	Summary          string
	Topics           string // JSON array, opaque to the store
	KeyDecisions     string // JSON array, opaque to the store
	OpenQuestions    string // JSON array, opaque to the store
	MessageCountAt   int
	CreatedAt        time.Time
}

// AddCheckpoint inserts a new checkpoint row.
func (s *Store) AddCheckpoint(c *Checkpoint) error {
	_, err := s.db.Exec(
		`INSERT INTO checkpoints (id, session_id, summary, topics, key_decisions, open_questions, message_count_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Summary, c.Topics, c.KeyDecisions, c.OpenQuestions, c.MessageCountAt,
		c.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// LatestCheckpoint returns the most recently created checkpoint for a
// session, or ErrNotFound if none exists.
func (s *Store) LatestCheckpoint(sessionID string) (*Checkpoint, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, summary, topics, key_decisions, open_questions, message_count_at, created_at
		 FROM checkpoints WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, sessionID)

	var (
		c         Checkpoint
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.SessionID, &c.Summary, &c.Topics, &c.KeyDecisions, &c.OpenQuestions, &c.MessageCountAt, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t
	return &c, nil
}
