package context

import (
	"testing"
	"time"

	"github.com/termai-dev/termai/internal/config"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheStoreThenLookupHits(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir+"/go.mod")

	c := newTestCache(t)
	cfg := config.DefaultProjectConfig().Context
	info := DetectProject(dir)
	scores := []ContextScore{{Path: "main.go", Score: 0.9}}

	c.Store(dir, info, cfg, scores)

	got, ok := c.Lookup(dir, info, cfg)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].Path != "main.go" {
		t.Fatalf("unexpected cached scores: %+v", got)
	}
}

func TestCacheMissesOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir+"/go.mod")

	c := newTestCache(t)
	cfg := config.DefaultProjectConfig().Context
	info := DetectProject(dir)
	c.Store(dir, info, cfg, []ContextScore{{Path: "main.go", Score: 0.9}})

	changed := cfg
	changed.Include = []string{"*.go"}

	if _, ok := c.Lookup(dir, info, changed); ok {
		t.Fatal("expected cache miss after config change")
	}
}

func TestCacheMissesOnExpiry(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir+"/go.mod")

	c := newTestCache(t)
	cfg := config.DefaultProjectConfig().Context
	info := DetectProject(dir)
	c.Store(dir, info, cfg, []ContextScore{{Path: "main.go", Score: 0.9}})

	key := normalizeRoot(dir)
	c.mu.Lock()
	entry := c.projects[key]
	entry.CreatedAt = time.Now().Add(-maxAge - time.Minute)
	c.projects[key] = entry
	c.mu.Unlock()

	if _, ok := c.Lookup(dir, info, cfg); ok {
		t.Fatal("expected cache miss after expiry")
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cacheDir := t.TempDir()
	touch(t, dir+"/go.mod")

	cfg := config.DefaultProjectConfig().Context
	info := DetectProject(dir)

	c1, err := NewCache(cacheDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c1.Store(dir, info, cfg, []ContextScore{{Path: "main.go", Score: 0.9}})
	c1.Close()

	c2, err := NewCache(cacheDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c2.Close()

	got, ok := c2.Lookup(dir, info, cfg)
	if !ok {
		t.Fatal("expected cache hit from a freshly loaded cache instance")
	}
	if len(got) != 1 {
		t.Fatalf("unexpected cached scores: %+v", got)
	}
}
