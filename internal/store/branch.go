package store

import (
	"database/sql"
	"time"
)

// AddBranch inserts a new branch row. A nil ParentBranchID marks a root
// branch; the caller is responsible for forbidding cycles when choosing
// a parent (the store only enforces a foreign key, not acyclicity).
func (s *Store) AddBranch(b *Branch) error {
	_, err := s.db.Exec(
		`INSERT INTO branches (id, session_id, parent_branch_id, name, description, status, created_at, last_activity_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SessionID, nullableString(b.ParentBranchID), b.Name, b.Description, string(b.Status),
		b.CreatedAt.UTC().Format(time.RFC3339), b.LastActivityAt.UTC().Format(time.RFC3339),
	)
	return err
}

// FetchBranch returns the branch with the given id, or ErrNotFound.
func (s *Store) FetchBranch(id string) (*Branch, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, parent_branch_id, name, description, status, created_at, last_activity_at
		 FROM branches WHERE id = ?`, id)
	return scanBranch(row)
}

// ListBranchesForSession returns every branch belonging to a session.
func (s *Store) ListBranchesForSession(sessionID string) ([]*Branch, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, parent_branch_id, name, description, status, created_at, last_activity_at
		 FROM branches WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Branch
	for rows.Next() {
		b, err := scanBranchRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBranchStatus transitions a branch's status and bumps its
// last-activity timestamp. Archived and merged branches should not be
// passed back to AppendMessageToBranch afterward; the store does not
// enforce that, the session/branch service layer does.
func (s *Store) UpdateBranchStatus(id string, status BranchStatus, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE branches SET status = ?, last_activity_at = ? WHERE id = ?`,
		string(status), at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// AppendMessageToBranch records the next position in a branch's ordered
// join of (branch, message, sequence).
func (s *Store) AppendMessageToBranch(branchID, messageID string) error {
	var nextSeq int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM branch_messages WHERE branch_id = ?`, branchID)
	if err := row.Scan(&nextSeq); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO branch_messages (branch_id, message_id, seq) VALUES (?, ?, ?)`,
		branchID, messageID, nextSeq,
	)
	return err
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func scanBranch(row *sql.Row) (*Branch, error) {
	var (
		id, sessionID, name, description, status, createdAt, lastActivityAt string
		parentBranchID                                                       sql.NullString
	)
	if err := row.Scan(&id, &sessionID, &parentBranchID, &name, &description, &status, &createdAt, &lastActivityAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return buildBranch(id, sessionID, parentBranchID, name, description, status, createdAt, lastActivityAt)
}

func scanBranchRows(rows *sql.Rows) (*Branch, error) {
	var (
		id, sessionID, name, description, status, createdAt, lastActivityAt string
		parentBranchID                                                       sql.NullString
	)
	if err := rows.Scan(&id, &sessionID, &parentBranchID, &name, &description, &status, &createdAt, &lastActivityAt); err != nil {
		return nil, err
	}
	return buildBranch(id, sessionID, parentBranchID, name, description, status, createdAt, lastActivityAt)
}

func buildBranch(id, sessionID string, parentBranchID sql.NullString, name, description, status, createdAt, lastActivityAt string) (*Branch, error) {
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, err
	}
	lastActivity, err := time.Parse(time.RFC3339, lastActivityAt)
	if err != nil {
		return nil, err
	}
	var parent *string
	if parentBranchID.Valid {
		v := parentBranchID.String
		parent = &v
	}
	return &Branch{
		ID:             id,
		SessionID:      sessionID,
		ParentBranchID: parent,
		Name:           name,
		Description:    description,
		Status:         BranchStatus(status),
		CreatedAt:      created,
		LastActivityAt: lastActivity,
	}, nil
}
