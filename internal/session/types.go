// Package session owns session lifecycle, message persistence, branching,
// and compaction: the Session Manager and Compaction Service over the
// relational store.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/termai-dev/termai/internal/store"
	"github.com/termai-dev/termai/internal/types"
)

// slidingExpiry is the window a session's expiry is reset to on every
// append and on creation.
const slidingExpiry = 24 * time.Hour

// Session is the hydrated, in-memory view of a persisted conversation:
// identity and metadata from the store, plus its full ordered message
// list translated to the wire type dispatchers consume.
type Session struct {
	ID        string
	Name      string
	ExpiresAt time.Time
	Current   bool
	Messages  []types.Message

	// Persisted reports whether this session has a row in the store.
	// A session created with NewTemporary stays false until its first
	// message append promotes it.
	Persisted bool
}

// NewTemporary builds an in-memory-only session. It is not written to
// the store until its first message is appended.
func NewTemporary(name string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Name:      name,
		ExpiresAt: time.Now().Add(slidingExpiry),
	}
}

func fromStoreSession(row *store.Session) *Session {
	return &Session{
		ID:        row.ID,
		Name:      row.Name,
		ExpiresAt: row.ExpiresAt,
		Current:   row.Current,
		Persisted: true,
	}
}

func toStoreSession(s *Session) *store.Session {
	return &store.Session{
		ID:        s.ID,
		Name:      s.Name,
		ExpiresAt: s.ExpiresAt,
		Current:   s.Current,
	}
}

func fromStoreMessage(row *store.Message) (types.Message, error) {
	m := types.Message{
		ID:        row.ID,
		SessionID: row.SessionID,
		Role:      types.Role(row.Role),
		Content:   row.Content,
		Type:      types.MessageType(row.Type),
	}
	if m.Type == types.MessageCompaction && row.CompactionMetadata != "" {
		meta, err := decodeCompactionMetadata(row.CompactionMetadata)
		if err != nil {
			return types.Message{}, err
		}
		m.Compaction = meta
	}
	return m, nil
}

func toStoreMessage(sessionID string, m types.Message) (*store.Message, error) {
	row := &store.Message{
		ID:        m.ID,
		SessionID: sessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		Type:      store.MessageType(m.Type),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if m.Type == types.MessageCompaction && m.Compaction != nil {
		blob, err := encodeCompactionMetadata(m.Compaction)
		if err != nil {
			return nil, err
		}
		row.CompactionMetadata = blob
	}
	return row, nil
}
