package store

import "database/sql"

// currentSchemaVersion tracks the highest migration applied. Each
// migration is idempotent: CREATE TABLE IF NOT EXISTS for new tables,
// ALTER TABLE ADD COLUMN guarded by a column-presence check for columns
// added after v1. Running migrate() on an already-current database is a
// no-op.
const currentSchemaVersion = 6

var migrations = []func(*sql.DB) error{
	migrateV1,
	migrateV2,
	migrateV3,
	migrateV4,
	migrateV5,
	migrateV6,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return err
	}

	version := 0
	row := s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`)
	_ = row.Scan(&version) // absent table/row leaves version at 0

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](s.db); err != nil {
			return err
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			i+1, nowRFC3339()); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`PRAGMA table_info(` + table + `)`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  interface{}
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func addColumnIfAbsent(db *sql.DB, table, column, ddl string) error {
	ok, err := hasColumn(db, table, column)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	_, err = db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + ddl)
	return err
}

// migrateV1 establishes the original minimal shape: config and a
// sessions/messages pair keyed loosely, before the current/name/
// message-type columns existed.
func migrateV1(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV2 adds the current flag and the human-facing session name,
// moving from a single implicit active session to multiple named
// sessions with one marked current.
func migrateV2(db *sql.DB) error {
	if err := addColumnIfAbsent(db, "sessions", "current", "current INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if err := addColumnIfAbsent(db, "sessions", "name", "name TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	// Backfill name from the original session_key column for any rows
	// created by v1 that have no name yet.
	_, err := db.Exec(`UPDATE sessions SET name = session_key WHERE name = ''`)
	return err
}

// migrateV3 adds the message type discriminant and its compaction
// payload, both absent from v1's plain-text message rows.
func migrateV3(db *sql.DB) error {
	if err := addColumnIfAbsent(db, "messages", "message_type", "message_type TEXT NOT NULL DEFAULT 'standard'"); err != nil {
		return err
	}
	return addColumnIfAbsent(db, "messages", "compaction_metadata", "compaction_metadata TEXT")
}

// migrateV4 adds the branch extension: an ordered join of branch to
// message, plus the branch rows themselves forming a parent-pointer tree.
func migrateV4(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS branches (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			parent_branch_id TEXT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,
			last_activity_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_session ON branches(session_id)`,
		`CREATE TABLE IF NOT EXISTS branch_messages (
			branch_id TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			PRIMARY KEY (branch_id, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV5 adds per-(session, provider) state blobs for providers that
// need to chain context server-side (e.g. a structured-output provider's
// response id for follow-up turns).
func migrateV5(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS provider_state (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			provider_id TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, provider_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV6 adds rolling structured checkpoints: a cheaper anchor than
// the full transcript for compaction to summarize from.
func migrateV6(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			summary TEXT NOT NULL DEFAULT '',
			topics TEXT NOT NULL DEFAULT '[]',
			key_decisions TEXT NOT NULL DEFAULT '[]',
			open_questions TEXT NOT NULL DEFAULT '[]',
			message_count_at INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

