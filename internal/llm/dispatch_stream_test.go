package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

func sseBody(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestStreamDispatcherResponseCompletedWins(t *testing.T) {
	body := sseBody(
		`data: {"type":"response.delta","delta":"partial"}`,
		``,
		`data: [DONE]`,
		`data: {"type":"response.completed","response":{"output":[{"type":"message","content":[{"type":"output_text","text":"final answer"}]}]}}`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	var deltas []string
	d := NewStreamDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	msgs, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}, func(s string) { deltas = append(deltas, s) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "final answer" {
		t.Fatalf("unexpected result: %+v", msgs)
	}
	if len(deltas) != 1 || deltas[0] != "partial" {
		t.Fatalf("expected onDelta to fire with 'partial', got %v", deltas)
	}
}

func TestStreamDispatcherLastResultWins(t *testing.T) {
	body := sseBody(
		`data: {"type":"response.completed","response":{"output":[{"type":"message","content":[{"type":"output_text","text":"first"}]}]}}`,
		`data: {"type":"response.completed","response":{"output":[{"type":"message","content":[{"type":"output_text","text":"second"}]}]}}`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	d := NewStreamDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	msgs, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs[0].Content != "second" {
		t.Fatalf("expected last result to win, got %q", msgs[0].Content)
	}
}

func TestStreamDispatcherFallbackTopLevelShape(t *testing.T) {
	body := sseBody(
		`data: {"output":[{"type":"message","content":[{"type":"output_text","text":"fallback"}]}]}`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	d := NewStreamDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	msgs, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs[0].Content != "fallback" {
		t.Fatalf("expected fallback result, got %q", msgs[0].Content)
	}
}

func TestStreamDispatcherNoCapturedResultIsParseFailure(t *testing.T) {
	body := sseBody(
		`data: {"type":"response.delta","delta":"just a delta"}`,
		`data: [DONE]`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	d := NewStreamDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	_, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindParseFailure {
		t.Fatalf("expected ParseFailure, got %v (ok=%v)", kind, ok)
	}
}

func TestStreamDispatcherUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := NewStreamDispatcher(DispatcherConfig{ProviderID: "test", Endpoint: srv.URL}, nil)
	_, err := d.Chat(context.Background(), Credential{Token: "tok"}, "", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindAuthenticationExpired {
		t.Fatalf("expected AuthenticationExpired, got %v (ok=%v)", kind, ok)
	}
}
