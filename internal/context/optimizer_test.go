package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/termai-dev/termai/internal/tokens"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOptimizeAdmitsUntilBudgetExhausted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", strings.Repeat("a", 40))
	writeFile(t, dir, "b.go", strings.Repeat("b", 40))

	scores := []ContextScore{
		{Path: "a.go", Score: 0.9},
		{Path: "b.go", Score: 0.1},
	}

	o := NewOptimizer(dir)
	tokensPerFile := tokens.Get().Count(strings.Repeat("a", 40))

	admitted, err := o.Optimize(scores, tokensPerFile, OverflowSkip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admitted) != 1 || admitted[0].Path != "a.go" {
		t.Fatalf("expected only the higher-scored file to fit, got %+v", admitted)
	}
}

func TestOptimizeSkipDropsOverflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", strings.Repeat("x", 4000))
	writeFile(t, dir, "small.go", "y")

	scores := []ContextScore{
		{Path: "big.go", Score: 0.9},
		{Path: "small.go", Score: 0.5},
	}

	o := NewOptimizer(dir)
	admitted, err := o.Optimize(scores, 5, OverflowSkip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range admitted {
		if a.Path == "big.go" {
			t.Fatal("expected big.go to be skipped, not truncated")
		}
	}
}

func TestOptimizeTruncateAppendsMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", strings.Repeat("line of code\n", 500))

	scores := []ContextScore{{Path: "big.go", Score: 0.9}}

	o := NewOptimizer(dir)
	admitted, err := o.Optimize(scores, 20, OverflowTruncate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admitted) != 1 {
		t.Fatalf("expected one truncated admission, got %d", len(admitted))
	}
	if !admitted[0].Truncated {
		t.Fatal("expected Truncated to be set")
	}
	if !strings.Contains(admitted[0].Content, "truncated") {
		t.Fatalf("expected truncation marker in content: %q", admitted[0].Content)
	}
	if admitted[0].Tokens > 20 {
		t.Fatalf("truncated content should fit the budget, got %d tokens", admitted[0].Tokens)
	}
}

func TestOptimizeSummarizeBehavesAsTruncate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", strings.Repeat("line of code\n", 500))

	scores := []ContextScore{{Path: "big.go", Score: 0.9}}

	o := NewOptimizer(dir)
	admitted, err := o.Optimize(scores, 20, OverflowSummarize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admitted) != 1 || !admitted[0].Truncated {
		t.Fatalf("expected summarize to behave as truncate, got %+v", admitted)
	}
}
