package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	s1.Close()

	s2, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()
}

func TestConfigUpsertAndFetch(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.FetchByKey("missing"); err != ErrNotFound {
		t.Fatalf("FetchByKey(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Upsert("provider", "anthropic"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	v, err := s.FetchByKey("provider")
	if err != nil || v != "anthropic" {
		t.Fatalf("FetchByKey() = (%q, %v), want (anthropic, nil)", v, err)
	}

	if err := s.Upsert("provider", "openai"); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	v, err = s.FetchByKey("provider")
	if err != nil || v != "openai" {
		t.Fatalf("FetchByKey() after update = (%q, %v), want (openai, nil)", v, err)
	}
}

func TestSessionCurrentInvariant(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.FetchCurrentSession(); err != ErrNoCurrentSession {
		t.Fatalf("FetchCurrentSession() error = %v, want ErrNoCurrentSession", err)
	}

	mkSession := func(id, name string) *Session {
		return &Session{ID: id, Name: name, ExpiresAt: time.Now().Add(24 * time.Hour), Current: true}
	}

	if err := s.RemoveCurrentFromAll(); err != nil {
		t.Fatalf("RemoveCurrentFromAll() error = %v", err)
	}
	if err := s.AddSession(mkSession("s1", "first")); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	cur, err := s.FetchCurrentSession()
	if err != nil || cur.ID != "s1" {
		t.Fatalf("FetchCurrentSession() = (%v, %v), want s1", cur, err)
	}

	if err := s.RemoveCurrentFromAll(); err != nil {
		t.Fatalf("RemoveCurrentFromAll() error = %v", err)
	}
	if err := s.AddSession(mkSession("s2", "second")); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	cur, err = s.FetchCurrentSession()
	if err != nil || cur.ID != "s2" {
		t.Fatalf("FetchCurrentSession() after second add = (%v, %v), want s2", cur, err)
	}

	all, err := s.FetchAllSessions()
	if err != nil || len(all) != 2 {
		t.Fatalf("FetchAllSessions() = (%v, %v), want 2 sessions", all, err)
	}
}

func TestDeleteSessionCascadesMessages(t *testing.T) {
	s := newTestStore(t)
	sess := &Session{ID: "s1", Name: "first", ExpiresAt: time.Now().Add(24 * time.Hour), Current: true}
	if err := s.AddSession(sess); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	msg := &Message{ID: "m1", SessionID: "s1", Role: "user", Content: "hi", Type: MessageStandard}
	if err := s.AddMessageToSession(msg, nowRFC3339()); err != nil {
		t.Fatalf("AddMessageToSession() error = %v", err)
	}

	if err := s.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := s.FetchSessionByID("s1"); err != ErrNotFound {
		t.Fatalf("FetchSessionByID() after delete error = %v, want ErrNotFound", err)
	}
	msgs, err := s.FetchMessagesForSession("s1")
	if err != nil {
		t.Fatalf("FetchMessagesForSession() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("FetchMessagesForSession() after cascade delete = %d messages, want 0", len(msgs))
	}

	if err := s.DeleteSession("missing"); err != ErrNotFound {
		t.Fatalf("DeleteSession(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMessageOrderingIsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	sess := &Session{ID: "s1", Name: "first", ExpiresAt: time.Now().Add(24 * time.Hour), Current: true}
	if err := s.AddSession(sess); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	for i, content := range []string{"one", "two", "three"} {
		msg := &Message{ID: string(rune('a' + i)), SessionID: "s1", Role: "user", Content: content, Type: MessageStandard}
		if err := s.AddMessageToSession(msg, nowRFC3339()); err != nil {
			t.Fatalf("AddMessageToSession(%d) error = %v", i, err)
		}
	}

	msgs, err := s.FetchMessagesForSession("s1")
	if err != nil {
		t.Fatalf("FetchMessagesForSession() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	want := []string{"one", "two", "three"}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Fatalf("msgs[%d].Content = %q, want %q", i, m.Content, want[i])
		}
	}
}
