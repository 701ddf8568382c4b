package session

import (
	"strings"
	"testing"

	"github.com/termai-dev/termai/internal/llm"
)

func TestCheckpointRecordAndLatest(t *testing.T) {
	st := newTestStore(t)
	registry := llm.NewRegistry()
	m := NewManager(st, registry, &fakeResolver{token: "tok"}, nil)
	sess, err := m.SessionAdd("with-checkpoints")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cs := NewCheckpointStore(st)
	if err := cs.Record(sess.ID, Checkpoint{
		Summary:        "discussed auth flow",
		Topics:         []string{"oauth", "pkce"},
		KeyDecisions:   []string{"use PKCE"},
		OpenQuestions:  []string{"which scopes?"},
		MessageCountAt: 4,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	latest, err := cs.Latest(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a checkpoint")
	}
	if latest.Summary != "discussed auth flow" || len(latest.Topics) != 2 {
		t.Fatalf("unexpected checkpoint: %+v", latest)
	}
}

func TestCheckpointLatestNoneYet(t *testing.T) {
	st := newTestStore(t)
	registry := llm.NewRegistry()
	m := NewManager(st, registry, &fakeResolver{token: "tok"}, nil)
	sess, err := m.SessionAdd("fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cs := NewCheckpointStore(st)
	latest, err := cs.Latest(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil checkpoint, got %+v", latest)
	}
}

func TestCheckpointExportYAML(t *testing.T) {
	cp := Checkpoint{
		Summary:        "discussed auth flow",
		Topics:         []string{"oauth", "pkce"},
		KeyDecisions:   []string{"use PKCE"},
		MessageCountAt: 4,
	}

	out, err := cp.ExportYAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, "summary: discussed auth flow") {
		t.Fatalf("expected summary field in YAML, got:\n%s", doc)
	}
	if !strings.Contains(doc, "- oauth") || !strings.Contains(doc, "- pkce") {
		t.Fatalf("expected topics list in YAML, got:\n%s", doc)
	}
	if strings.Contains(doc, "open_questions") {
		t.Fatalf("expected omitempty to drop empty open_questions, got:\n%s", doc)
	}
}
