package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/termai-dev/termai/internal/config"
)

func writeProjectFixture(t *testing.T, dir string) {
	t.Helper()
	touch(t, filepath.Join(dir, "go.mod"))
	touch(t, filepath.Join(dir, "main.go"))
	touch(t, filepath.Join(dir, "main_test.go"))
	touch(t, filepath.Join(dir, "README.md"))
	if err := os.MkdirAll(filepath.Join(dir, "vendor", "dep"), 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "vendor", "dep", "dep.go"))
}

func TestAnalyzeScoresAndExcludes(t *testing.T) {
	dir := t.TempDir()
	writeProjectFixture(t, dir)

	a := NewAnalyzer(nil)
	cfg := config.DefaultProjectConfig().Context

	info, scores, err := a.Analyze(dir, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Type != ProjectGo {
		t.Fatalf("expected ProjectGo, got %v", info.Type)
	}

	for _, sc := range scores {
		if strings.HasPrefix(filepath.ToSlash(sc.Path), "vendor/") {
			t.Fatalf("vendor file should have been excluded: %+v", sc)
		}
	}

	if len(scores) == 0 {
		t.Fatal("expected at least one scored file")
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Score > scores[i-1].Score {
			t.Fatalf("scores not sorted descending at index %d", i)
		}
	}

	var mainScore, readmeScore float64
	for _, sc := range scores {
		switch sc.Path {
		case "main.go":
			mainScore = sc.Score
		case "README.md":
			readmeScore = sc.Score
		}
	}
	if mainScore <= readmeScore {
		t.Fatalf("expected main.go (%v) to outscore README.md (%v)", mainScore, readmeScore)
	}
}

func TestAnalyzeRespectsInclude(t *testing.T) {
	dir := t.TempDir()
	writeProjectFixture(t, dir)

	a := NewAnalyzer(nil)
	cfg := config.DefaultProjectConfig().Context
	cfg.Include = []string{"*.go"}

	_, scores, err := a.Analyze(dir, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sc := range scores {
		if filepath.Ext(sc.Path) != ".go" {
			t.Fatalf("expected only .go files with include filter, found %s", sc.Path)
		}
	}
}
