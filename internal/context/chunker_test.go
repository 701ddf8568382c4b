package context

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPartitionGroupsByType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "handler_test.go", "package main\n")
	writeFile(t, dir, "README.md", "# docs\n")
	if err := os.MkdirAll(filepath.Join(dir, "internal"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "internal/helper.go", "package internal\n")

	scores := []ContextScore{
		{Path: "main.go", Score: 0.9, FileType: fileTypeSource},
		{Path: "handler_test.go", Score: 0.3, FileType: fileTypeTest},
		{Path: "README.md", Score: 0.4, FileType: fileTypeDocs},
		{Path: "internal/helper.go", Score: 0.5, FileType: fileTypeSource},
	}

	chunker := NewChunker(NewOptimizer(dir))
	chunks, err := chunker.Partition(scores, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byType := make(map[ChunkType]Chunk)
	for _, c := range chunks {
		byType[c.Type] = c
	}

	if _, ok := byType[ChunkOverview]; !ok {
		t.Error("expected an Overview chunk for main.go")
	}
	if _, ok := byType[ChunkTests]; !ok {
		t.Error("expected a Tests chunk")
	}
	if _, ok := byType[ChunkDocs]; !ok {
		t.Error("expected a Docs chunk")
	}
	if _, ok := byType[ChunkUtils]; !ok {
		t.Error("expected a Utils chunk for internal/helper.go")
	}
}

func TestGlobalContextAccumulates(t *testing.T) {
	g := NewGlobalContext()
	if g.String() != "" {
		t.Fatal("expected empty accumulator to render empty")
	}
	g.Append("  ")
	if g.String() != "" {
		t.Fatal("expected blank notes to be ignored")
	}
	g.Append("core chunk covers the HTTP handlers")
	out := g.String()
	if out == "" {
		t.Fatal("expected non-empty rendering after Append")
	}
}
