package context

import (
	"strings"
	"sync"
)

// ChunkType buckets scored files into a typed partition for multi-session
// chunking, used when a single optimizer pass would have to skip a
// material fraction of the project to fit one budget.
type ChunkType string

const (
	ChunkOverview ChunkType = "overview"
	ChunkCore     ChunkType = "core"
	ChunkUtils    ChunkType = "utils"
	ChunkTests    ChunkType = "tests"
	ChunkConfig   ChunkType = "config"
	ChunkDocs     ChunkType = "docs"
)

// chunkOrder fixes the sequence sub-sessions are created in: overview
// first so later chunks' global context has something to build on.
var chunkOrder = []ChunkType{ChunkOverview, ChunkCore, ChunkUtils, ChunkTests, ChunkConfig, ChunkDocs}

// Chunk is one typed partition: the scores routed to it and the files
// the Optimizer actually admitted within its own token budget.
type Chunk struct {
	Type  ChunkType
	Files []AdmittedFile
}

// Chunker partitions a scored file list into typed chunks, each fitting
// its own per-chunk token budget via the Optimizer.
type Chunker struct {
	optimizer *Optimizer
}

// NewChunker wires a chunker over an optimizer rooted at the project
// directory the scores were computed against.
func NewChunker(optimizer *Optimizer) *Chunker {
	return &Chunker{optimizer: optimizer}
}

// Partition groups scores by ChunkType, then runs the Optimizer
// independently within each group against perChunkBudget, dropping empty
// chunks.
func (c *Chunker) Partition(scores []ContextScore, perChunkBudget int) ([]Chunk, error) {
	buckets := make(map[ChunkType][]ContextScore)
	for _, sc := range scores {
		t := classifyChunk(sc)
		buckets[t] = append(buckets[t], sc)
	}

	var chunks []Chunk
	for _, t := range chunkOrder {
		bucket := buckets[t]
		if len(bucket) == 0 {
			continue
		}
		admitted, err := c.optimizer.Optimize(bucket, perChunkBudget, OverflowTruncate)
		if err != nil {
			return nil, err
		}
		if len(admitted) == 0 {
			continue
		}
		chunks = append(chunks, Chunk{Type: t, Files: admitted})
	}
	return chunks, nil
}

func classifyChunk(sc ContextScore) ChunkType {
	switch sc.FileType {
	case fileTypeTest:
		return ChunkTests
	case fileTypeConfig:
		return ChunkConfig
	case fileTypeDocs:
		return ChunkDocs
	case fileTypeSource:
		if isOverviewFile(sc.Path) {
			return ChunkOverview
		}
		if isUtilPath(sc.Path) {
			return ChunkUtils
		}
		return ChunkCore
	default:
		return ChunkUtils
	}
}

var overviewFileNames = map[string]bool{
	"main.go": true, "main.rs": true, "main.py": true,
	"index.js": true, "index.ts": true, "app.py": true, "app.js": true,
	"README.md": true,
}

func isOverviewFile(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	return overviewFileNames[base]
}

func isUtilPath(path string) bool {
	lower := strings.ToLower(path)
	for _, seg := range strings.Split(lower, "/") {
		if seg == "util" || seg == "utils" || seg == "helpers" || seg == "internal" || seg == "lib" {
			return true
		}
	}
	return false
}

// GlobalContext accumulates short textual insights produced while
// processing one chunk, prepended to the system prompt of subsequent
// chunks' sub-sessions.
type GlobalContext struct {
	mu    sync.Mutex
	notes []string
}

// NewGlobalContext returns an empty accumulator.
func NewGlobalContext() *GlobalContext {
	return &GlobalContext{}
}

// Append records an insight surfaced while processing a chunk.
func (g *GlobalContext) Append(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notes = append(g.notes, note)
}

// String renders the accumulated notes as a prependable block, empty if
// nothing has been recorded yet.
func (g *GlobalContext) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.notes) == 0 {
		return ""
	}
	return "## Context from earlier chunks\n\n" + strings.Join(g.notes, "\n")
}
