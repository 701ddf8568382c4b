package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/termai-dev/termai/internal/llm"
	"github.com/termai-dev/termai/internal/types"
)

func TestSendMessageChainsStructuredResponseID(t *testing.T) {
	var seenPreviousID []string
	turn := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PreviousResponseID string `json:"previous_response_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		seenPreviousID = append(seenPreviousID, req.PreviousResponseID)
		turn++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"resp-` + strconv.Itoa(turn) + `","output":[{"type":"message","content":[{"type":"output_text","text":"ack"}]}]}`))
	}))
	defer srv.Close()

	st := newTestStore(t)
	registry := llm.NewRegistry()
	registry.Register(llm.NewStructuredDispatcher(llm.DispatcherConfig{ProviderID: "openai", Endpoint: srv.URL}, nil))
	m := NewManager(st, registry, &fakeResolver{token: "tok"}, nil)

	sess, err := m.SessionAdd("structured")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.SendMessage(context.Background(), sess, "openai", "", types.Message{Role: types.RoleUser, Content: "first"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.SendMessage(context.Background(), sess, "openai", "", types.Message{Role: types.RoleUser, Content: "second"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seenPreviousID) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seenPreviousID))
	}
	if seenPreviousID[0] != "" {
		t.Fatalf("expected the first turn to carry no previous_response_id, got %q", seenPreviousID[0])
	}
	if seenPreviousID[1] != "resp-1" {
		t.Fatalf("expected the second turn to replay the first turn's response id, got %q", seenPreviousID[1])
	}

	state, err := st.FetchProviderState(sess.ID, "openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != "resp-2" {
		t.Fatalf("expected the latest response id persisted, got %q", state)
	}
}

