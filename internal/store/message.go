package store

import "database/sql"

// AddMessageToSession appends a message to a session's ordered sequence
// and bumps the session's sliding expiry. Append-only: messages are
// never updated or reordered once written.
func (s *Store) AddMessageToSession(msg *Message, newExpiry string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var nextSeq int
	row := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, msg.SessionID)
	if err := row.Scan(&nextSeq); err != nil {
		return err
	}
	msg.Seq = nextSeq

	if _, err := tx.Exec(
		`INSERT INTO messages (id, session_id, seq, role, content, message_type, compaction_metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Seq, msg.Role, msg.Content, string(msg.Type), nullString(msg.CompactionMetadata),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, newExpiry, msg.SessionID); err != nil {
		return err
	}

	return tx.Commit()
}

// FetchMessagesForSession returns every message for a session in
// insertion order.
func (s *Store) FetchMessagesForSession(sessionID string) ([]*Message, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, seq, role, content, message_type, compaction_metadata
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceMessages atomically deletes every existing message for a
// session and inserts a new ordered sequence in its place. Used by
// compaction to substitute compaction blobs for a prefix of history.
func (s *Store) ReplaceMessages(sessionID string, messages []*Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	for i, m := range messages {
		if _, err := tx.Exec(
			`INSERT INTO messages (id, session_id, seq, role, content, message_type, compaction_metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, sessionID, i, m.Role, m.Content, string(m.Type), nullString(m.CompactionMetadata),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(rows *sql.Rows) (*Message, error) {
	var (
		id, sessionID, role, content, msgType string
		seq                                    int
		compactionMetadata                     sql.NullString
	)
	if err := rows.Scan(&id, &sessionID, &seq, &role, &content, &msgType, &compactionMetadata); err != nil {
		return nil, err
	}
	return &Message{
		ID:                 id,
		SessionID:          sessionID,
		Seq:                seq,
		Role:               role,
		Content:            content,
		Type:               MessageType(msgType),
		CompactionMetadata: compactionMetadata.String,
	}, nil
}
