package store

import "database/sql"

// FetchByKey returns the value stored under key, or ErrNotFound.
func (s *Store) FetchByKey(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Upsert performs fetch-then-update-or-insert for a config key. Writing
// an empty string clears the entry rather than deleting the row, so a
// later read still finds a key that was explicitly cleared.
func (s *Store) Upsert(key, value string) error {
	_, err := s.FetchByKey(key)
	switch err {
	case nil:
		_, err = s.db.Exec(`UPDATE config SET value = ? WHERE key = ?`, value, key)
		return err
	case ErrNotFound:
		_, err = s.db.Exec(`INSERT INTO config (key, value) VALUES (?, ?)`, key, value)
		return err
	default:
		return err
	}
}
