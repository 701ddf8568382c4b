package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/termai-dev/termai/internal/apperr"
)

func TestDoJSONRequestClassifiesAuthBodyEvenOffANon401Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	_, err := doJSONRequest(context.Background(), srv.Client(), srv.URL, Credential{Token: "tok"}, []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindAuthenticationExpired {
		t.Fatalf("expected AuthenticationExpired, got %v (ok=%v)", kind, ok)
	}
}

func TestDoJSONRequestMarksRetryableOverload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"the server is overloaded"}}`))
	}))
	defer srv.Close()

	_, err := doJSONRequest(context.Background(), srv.Client(), srv.URL, Credential{Token: "tok"}, []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindProviderError {
		t.Fatalf("expected ProviderError, got %v (ok=%v)", kind, ok)
	}
	if !strings.Contains(err.Error(), "retryable") {
		t.Fatalf("expected the message to flag this as retryable, got %q", err.Error())
	}
}

func TestDoJSONRequestLeavesUnclassifiedErrorsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"totally malformed widget"}}`))
	}))
	defer srv.Close()

	_, err := doJSONRequest(context.Background(), srv.Client(), srv.URL, Credential{Token: "tok"}, []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindProviderError {
		t.Fatalf("expected ProviderError, got %v (ok=%v)", kind, ok)
	}
	if strings.Contains(err.Error(), "retryable") {
		t.Fatalf("expected no retryable marker for an unclassified error, got %q", err.Error())
	}
}
