package llm

import "testing"

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	d := NewSimpleDispatcher(DispatcherConfig{ProviderID: "openai"}, nil)
	r.Register(d)

	got, err := r.Get("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProviderID() != "openai" {
		t.Fatalf("got provider %q", got.ProviderID())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSimpleDispatcher(DispatcherConfig{ProviderID: "a"}, nil))
	r.Register(NewSimpleDispatcher(DispatcherConfig{ProviderID: "b"}, nil))

	ids := r.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
}
