package store

import "database/sql"

// FetchProviderState returns the persisted state blob for a
// (session, provider) pair, or "" if none has been written.
func (s *Store) FetchProviderState(sessionID, providerID string) (string, error) {
	var state string
	row := s.db.QueryRow(`SELECT state FROM provider_state WHERE session_id = ? AND provider_id = ?`, sessionID, providerID)
	err := row.Scan(&state)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return state, err
}

// SetProviderState upserts the state blob for a (session, provider)
// pair.
func (s *Store) SetProviderState(sessionID, providerID, state string) error {
	_, err := s.db.Exec(
		`INSERT INTO provider_state (session_id, provider_id, state) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, provider_id) DO UPDATE SET state = excluded.state`,
		sessionID, providerID, state,
	)
	return err
}
