package llm

import (
	"context"
	"testing"
	"time"
)

type fakeCacheStore struct {
	values map[string]string
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{values: make(map[string]string)}
}

func (f *fakeCacheStore) Fetch(key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCacheStore) Write(key, value string) error {
	f.values[key] = value
	return nil
}

type fakeLister struct {
	models []ModelInfo
	calls  int
}

func (f *fakeLister) ListModels(_ context.Context, _ Credential) ([]ModelInfo, error) {
	f.calls++
	return f.models, nil
}

func TestIsChatCapable(t *testing.T) {
	cases := map[string]bool{
		"gpt-4o":              true,
		"gpt-4o-mini":         true,
		"o3-mini":             true,
		"text-embedding-3":    false,
		"whisper-1":           false,
		"gpt-4-transcription": false,
		"dall-e-3":            false,
		"claude-3-opus":       false,
	}
	for id, want := range cases {
		if got := IsChatCapable(id); got != want {
			t.Errorf("IsChatCapable(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestFilterChatCapablePreservesOrder(t *testing.T) {
	in := []string{"gpt-4o", "text-embedding-3", "o3-mini", "whisper-1"}
	got := FilterChatCapable(in)
	want := []string{"gpt-4o", "o3-mini"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestModelsCacheRefreshThenHitsCache(t *testing.T) {
	store := newFakeCacheStore()
	cache := NewModelsCache(store)
	lister := &fakeLister{models: []ModelInfo{{ID: "gpt-4o"}, {ID: "whisper-1"}}}

	models, err := cache.GetModels(context.Background(), "openai", lister, Credential{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "gpt-4o" {
		t.Fatalf("unexpected filtered models: %+v", models)
	}
	if lister.calls != 1 {
		t.Fatalf("expected 1 call, got %d", lister.calls)
	}

	if _, err := cache.GetModels(context.Background(), "openai", lister, Credential{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.calls != 1 {
		t.Fatalf("expected cache hit, lister called %d times", lister.calls)
	}
}

func TestModelsCacheExpiresAfterTTL(t *testing.T) {
	store := newFakeCacheStore()
	store.values[cacheListKey("openai")] = `[{"ID":"gpt-4o"}]`
	store.values[cacheTimestampKey("openai")] = time.Now().Add(-25 * time.Hour).Format(time.RFC3339)

	cache := NewModelsCache(store)
	lister := &fakeLister{models: []ModelInfo{{ID: "gpt-4o"}}}

	if _, err := cache.GetModels(context.Background(), "openai", lister, Credential{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.calls != 1 {
		t.Fatalf("expected refresh after TTL expiry, lister called %d times", lister.calls)
	}
}
