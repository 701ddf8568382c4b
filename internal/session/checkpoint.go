package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/termai-dev/termai/internal/store"
)

// Checkpoint is a rolling structured summary created opportunistically
// ahead of compaction: a cheaper anchor than the full transcript for
// compact_session to synthesize from. It is never required; compaction
// proceeds fine without one.
type Checkpoint struct {
	Summary        string
	Topics         []string
	KeyDecisions   []string
	OpenQuestions  []string
	MessageCountAt int
	CreatedAt      time.Time
}

// checkpointDoc is the YAML field layout for ExportYAML, kept distinct
// from Checkpoint so renaming Go fields never reshapes the exported
// document.
type checkpointDoc struct {
	Summary        string    `yaml:"summary"`
	Topics         []string  `yaml:"topics,omitempty"`
	KeyDecisions   []string  `yaml:"key_decisions,omitempty"`
	OpenQuestions  []string  `yaml:"open_questions,omitempty"`
	MessageCountAt int       `yaml:"message_count_at"`
	CreatedAt      time.Time `yaml:"created_at"`
}

// ExportYAML renders a checkpoint as a human-readable YAML document, for
// operators inspecting what compaction will anchor to without reaching
// into the database directly.
func (cp Checkpoint) ExportYAML() ([]byte, error) {
	return yaml.Marshal(checkpointDoc{
		Summary:        cp.Summary,
		Topics:         cp.Topics,
		KeyDecisions:   cp.KeyDecisions,
		OpenQuestions:  cp.OpenQuestions,
		MessageCountAt: cp.MessageCountAt,
		CreatedAt:      cp.CreatedAt,
	})
}

// CheckpointStore wraps the store's checkpoint table.
type CheckpointStore struct {
	store *store.Store
}

// NewCheckpointStore wraps an open store.
func NewCheckpointStore(st *store.Store) *CheckpointStore {
	return &CheckpointStore{store: st}
}

// Record persists a new checkpoint for a session.
func (c *CheckpointStore) Record(sessionID string, cp Checkpoint) error {
	topics, err := json.Marshal(cp.Topics)
	if err != nil {
		return err
	}
	decisions, err := json.Marshal(cp.KeyDecisions)
	if err != nil {
		return err
	}
	questions, err := json.Marshal(cp.OpenQuestions)
	if err != nil {
		return err
	}
	return c.store.AddCheckpoint(&store.Checkpoint{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Summary:        cp.Summary,
		Topics:         string(topics),
		KeyDecisions:   string(decisions),
		OpenQuestions:  string(questions),
		MessageCountAt: cp.MessageCountAt,
		CreatedAt:      time.Now().UTC(),
	})
}

// Latest returns the most recent checkpoint for a session, or
// (nil, nil) if none has been recorded.
func (c *CheckpointStore) Latest(sessionID string) (*Checkpoint, error) {
	row, err := c.store.LatestCheckpoint(sessionID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cp := &Checkpoint{
		Summary:        row.Summary,
		MessageCountAt: row.MessageCountAt,
		CreatedAt:      row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Topics), &cp.Topics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(row.KeyDecisions), &cp.KeyDecisions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(row.OpenQuestions), &cp.OpenQuestions); err != nil {
		return nil, err
	}
	return cp, nil
}
