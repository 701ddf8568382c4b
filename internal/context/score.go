package context

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ContextScore is the relevance verdict the analyzer emits for one file.
type ContextScore struct {
	Path       string
	Score      float64
	Size       int64
	ModTime    time.Time
	FileType   string
	Importance []string
}

// FileType tags used for the weighting table below.
const (
	fileTypeSource = "source"
	fileTypeConfig = "config"
	fileTypeDocs   = "docs"
	fileTypeTest   = "test"
	fileTypeOther  = "other"
)

var sourceExtensions = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
	".jsx": true, ".tsx": true, ".java": true, ".kt": true, ".c": true,
	".cc": true, ".cpp": true, ".h": true, ".hpp": true, ".rb": true,
	".php": true, ".cs": true, ".swift": true,
}

var configExtensions = map[string]bool{
	".toml": true, ".yaml": true, ".yml": true, ".json": true,
	".ini": true, ".cfg": true,
}

var configNames = map[string]bool{
	"go.mod": true, "go.sum": true, "Cargo.toml": true, "Cargo.lock": true,
	"package.json": true, "package-lock.json": true, "pyproject.toml": true,
	"Dockerfile": true, "Makefile": true,
}

var docExtensions = map[string]bool{
	".md": true, ".txt": true, ".rst": true, ".adoc": true,
}

// fileTypeWeight ranks source > config > docs > tests > other, per the
// priority the analyzer gives each category before any per-file boosts.
var fileTypeWeight = map[string]float64{
	fileTypeSource: 1.0,
	fileTypeConfig: 0.6,
	fileTypeDocs:   0.4,
	fileTypeTest:   0.3,
	fileTypeOther:  0.1,
}

func classifyFileType(relPath string) string {
	base := filepath.Base(relPath)
	ext := filepath.Ext(base)

	if isTestPath(relPath) {
		return fileTypeTest
	}
	if configNames[base] {
		return fileTypeConfig
	}
	if configExtensions[ext] {
		return fileTypeConfig
	}
	if docExtensions[ext] {
		return fileTypeDocs
	}
	if sourceExtensions[ext] {
		return fileTypeSource
	}
	return fileTypeOther
}

func isTestPath(relPath string) bool {
	lower := strings.ToLower(relPath)
	if strings.Contains(lower, "_test.") || strings.Contains(lower, ".test.") ||
		strings.Contains(lower, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(lower), "/") {
		if seg == "test" || seg == "tests" || seg == "__tests__" {
			return true
		}
	}
	return false
}

const (
	// largeFileBytes starts the size discount; files below this carry no
	// penalty.
	largeFileBytes = 50_000
	// recentWindow grants a recency bonus to files touched within it.
	recentWindow = 7 * 24 * time.Hour
)

// computeScore combines file-type weight, priority-pattern boost, a size
// discount for very large files, and a recency bonus into a single score
// clamped to [0,1].
func computeScore(relPath string, info os.FileInfo, pt ProjectType, extraPriority []string) ContextScore {
	fileType := classifyFileType(relPath)
	base := fileTypeWeight[fileType]

	boost := 0.0
	var hits []string
	for _, pat := range priorityPatterns[pt] {
		if matchBareOrGlob(pat, relPath) {
			boost = 0.3
			hits = append(hits, pat)
			break
		}
	}
	for _, pat := range extraPriority {
		if matchBareOrGlob(pat, relPath) {
			if boost < 0.3 {
				boost = 0.3
			}
			hits = append(hits, pat)
		}
	}

	discount := 0.0
	if info.Size() > largeFileBytes {
		over := float64(info.Size()-largeFileBytes) / float64(largeFileBytes)
		discount = min(0.4, 0.1*over)
	}

	recency := 0.0
	if time.Since(info.ModTime()) < recentWindow {
		recency = 0.1
	}

	score := base + boost + recency - discount
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return ContextScore{
		Path:       relPath,
		Score:      score,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		FileType:   fileType,
		Importance: hits,
	}
}

// matchBareOrGlob applies the restricted glob described for include and
// exclude patterns: "**" matches any depth, "*" matches within a single
// path component, and a bare name (no wildcard, no slash) matches either
// exactly or as a path suffix.
func matchBareOrGlob(pattern, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	pattern = filepath.ToSlash(pattern)

	if !strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		base := filepath.Base(relPath)
		return base == pattern || strings.HasSuffix(relPath, "/"+pattern)
	}

	ok, err := doublestar.Match(pattern, relPath)
	if err == nil && ok {
		return true
	}
	// Also try matching against the base name for single-component
	// patterns like "*.go" against a nested path.
	ok, err = doublestar.Match(pattern, filepath.Base(relPath))
	return err == nil && ok
}

// matchesAny reports whether relPath matches any of patterns.
func matchesAny(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if matchBareOrGlob(p, relPath) {
			return true
		}
	}
	return false
}
