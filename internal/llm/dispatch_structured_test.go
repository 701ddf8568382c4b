package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

func TestStructuredDispatcherDiscardsReasoningAndToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(structuredResponse{
			Output: []structuredOutputItem{
				{Type: "reasoning"},
				{Type: "message", Content: []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				}{{Type: "output_text", Text: "hello "}}},
				{Type: "tool_call"},
				{Type: "message", Content: []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				}{{Type: "output_text", Text: "world"}}},
			},
		})
	}))
	defer srv.Close()

	d := NewStructuredDispatcher(DispatcherConfig{
		ProviderID: "test",
		Endpoint:   srv.URL,
		Model:      "test-model",
	}, nil)

	msgs, err := d.Chat(context.Background(), Credential{Token: "tok"}, "sys", []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if got, want := msgs[0].Content, "hello world"; got != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
	if msgs[0].Role != types.RoleAssistant {
		t.Fatalf("role = %v, want assistant", msgs[0].Role)
	}
}

func TestStructuredDispatcherNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	d := NewStructuredDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	_, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindProviderError {
		t.Fatalf("expected ProviderError, got %v (ok=%v)", kind, ok)
	}
}

func TestStructuredDispatcherInputTooLarge(t *testing.T) {
	d := NewStructuredDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: "http://unused"}, nil)
	big := make([]byte, inputSafetyCeiling+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", []types.Message{
		{Role: types.RoleUser, Content: string(big)},
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindInputTooLarge {
		t.Fatalf("expected InputTooLarge, got %v (ok=%v)", kind, ok)
	}
}
