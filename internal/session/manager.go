package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	. "github.com/termai-dev/termai/internal/logging"
	"github.com/termai-dev/termai/internal/llm"
	"github.com/termai-dev/termai/internal/store"
	"github.com/termai-dev/termai/internal/types"
)

// CredentialResolver obtains a live credential for a provider id,
// abstracting over OAuth bearer refresh (Token Manager) and raw API
// keys so the Session Manager never picks an auth mode itself.
type CredentialResolver interface {
	Resolve(ctx context.Context, providerID string, mode llm.AuthMode) (llm.Credential, error)
}

// Manager owns session lifecycle: creation, lookup, message append, and
// triggering compaction once a session crosses the size threshold.
// Session mutation is single-writer; callers must not run SendMessage
// concurrently against the same session.
type Manager struct {
	store     *store.Store
	registry  *llm.Registry
	resolver  CredentialResolver
	compactor *Compactor
	mu        sync.Mutex
}

// NewManager wires a Session Manager over an open store, a provider
// registry, a credential resolver, and the compactor that runs
// best-effort once an append crosses the compaction threshold.
func NewManager(st *store.Store, registry *llm.Registry, resolver CredentialResolver, compactor *Compactor) *Manager {
	return &Manager{store: st, registry: registry, resolver: resolver, compactor: compactor}
}

// FetchAllSessions returns every persisted session with its messages
// hydrated.
func (m *Manager) FetchAllSessions() ([]*Session, error) {
	rows, err := m.store.FetchAllSessions()
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sess := fromStoreSession(row)
		if err := m.hydrate(sess); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// FetchCurrentSession returns the exactly-one session with current=1,
// or store.ErrNoCurrentSession.
func (m *Manager) FetchCurrentSession() (*Session, error) {
	row, err := m.store.FetchCurrentSession()
	if err != nil {
		return nil, err
	}
	sess := fromStoreSession(row)
	if err := m.hydrate(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) hydrate(sess *Session) error {
	rows, err := m.store.FetchMessagesForSession(sess.ID)
	if err != nil {
		return err
	}
	msgs := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := fromStoreMessage(row)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	sess.Messages = msgs
	return nil
}

// SessionAdd clears the current flag on every session in a single
// UPDATE, then inserts a new row as the sole current session with a
// fresh 24-hour sliding expiry.
func (m *Manager) SessionAdd(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.RemoveCurrentFromAll(); err != nil {
		return nil, err
	}
	sess := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		ExpiresAt: time.Now().Add(slidingExpiry),
		Current:   true,
		Persisted: true,
	}
	if err := m.store.AddSession(toStoreSession(sess)); err != nil {
		return nil, err
	}
	L_info("session: created", "id", sess.ID, "name", sess.Name)
	return sess, nil
}

// SessionAddMessages assigns a UUID to any message lacking one,
// persists each in order, and bumps the session's sliding expiry. A
// temporary (never-persisted) session is promoted to a real row on its
// first append.
func (m *Manager) SessionAddMessages(sess *Session, messages []types.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !sess.Persisted {
		if err := m.promote(sess); err != nil {
			return err
		}
	}

	newExpiry := time.Now().Add(slidingExpiry)
	for _, msg := range messages {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		row, err := toStoreMessage(sess.ID, msg)
		if err != nil {
			return err
		}
		if err := m.store.AddMessageToSession(row, newExpiry.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		msg.ID = row.ID
		sess.Messages = append(sess.Messages, msg)
	}
	sess.ExpiresAt = newExpiry
	return nil
}

// promote writes a temporary session's row to the store for the first
// time, becoming the current session.
func (m *Manager) promote(sess *Session) error {
	if err := m.store.RemoveCurrentFromAll(); err != nil {
		return err
	}
	sess.Current = true
	if err := m.store.AddSession(toStoreSession(sess)); err != nil {
		return err
	}
	sess.Persisted = true
	return nil
}

// DeleteSession removes a session and cascades to its messages and
// branches in one transaction.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.DeleteSession(id)
}

// SendMessage appends the user's message, dispatches the turn to the
// named provider through the resolved credential, appends and persists
// the assistant's reply, and then runs compaction best-effort if the
// session now crosses the threshold. It returns the newly appended
// assistant messages.
func (m *Manager) SendMessage(ctx context.Context, sess *Session, providerID, systemPrompt string, userMessage types.Message, onDelta func(string)) ([]types.Message, error) {
	if err := m.SessionAddMessages(sess, []types.Message{userMessage}); err != nil {
		return nil, err
	}

	dispatcher, err := m.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	cred, err := m.resolver.Resolve(ctx, providerID, dispatcher.AuthMode())
	if err != nil {
		return nil, err
	}

	reply, err := m.dispatch(ctx, dispatcher, cred, providerID, systemPrompt, sess, onDelta)
	if err != nil {
		return nil, err
	}
	if err := m.SessionAddMessages(sess, reply); err != nil {
		return nil, err
	}

	if m.compactor != nil && NeedsCompaction(sess.Messages) {
		if m.hasActiveBranches(sess.ID) {
			L_debug("session: skipping compaction, session has active branches", "session", sess.ID)
		} else if err := m.compactor.Compact(ctx, cred, sess, dispatcher.Model()); err != nil {
			L_warn("session: compaction failed, leaving session untouched", "session", sess.ID, "error", err)
		}
	}

	return reply, nil
}

// dispatch runs one provider call for sess, routing through
// StatefulDispatcher when the provider declares it so a per-(session,
// provider) continuation token is persisted and replayed on the next
// turn, letting a provider that honors it resume server-side state
// rather than treating every turn as a cold start.
func (m *Manager) dispatch(ctx context.Context, dispatcher llm.Dispatcher, cred llm.Credential, providerID, systemPrompt string, sess *Session, onDelta func(string)) ([]types.Message, error) {
	stateful, ok := dispatcher.(llm.StatefulDispatcher)
	if !ok {
		return dispatcher.Chat(ctx, cred, systemPrompt, sess.Messages, onDelta)
	}

	priorState, err := m.store.FetchProviderState(sess.ID, providerID)
	if err != nil {
		L_warn("session: failed to fetch provider state, continuing without it", "session", sess.ID, "provider", providerID, "error", err)
		priorState = ""
	}

	reply, nextState, err := stateful.ChatWithState(ctx, cred, systemPrompt, sess.Messages, priorState, onDelta)
	if err != nil {
		return nil, err
	}

	if nextState != "" {
		if err := m.store.SetProviderState(sess.ID, providerID, nextState); err != nil {
			L_warn("session: failed to persist provider state", "session", sess.ID, "provider", providerID, "error", err)
		}
	}
	return reply, nil
}

// hasActiveBranches reports whether sessionID has any non-archived,
// non-merged branch. Compaction rewrites a session's entire message
// list in place, which would invalidate any branch's view of history
// still being worked on, so an active branch forbids compaction
// outright rather than trying to reproject it afterward.
func (m *Manager) hasActiveBranches(sessionID string) bool {
	branches, err := m.store.ListBranchesForSession(sessionID)
	if err != nil {
		L_warn("session: failed to check branches before compaction, proceeding", "session", sessionID, "error", err)
		return false
	}
	for _, b := range branches {
		if b.Status == store.BranchActive {
			return true
		}
	}
	return false
}
