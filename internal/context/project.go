// Package context implements the Context Analyzer, its on-disk cache, the
// token-budgeted Optimizer, and the multi-session Chunker: scoring and
// assembling project files into provider-ready context.
package context

import (
	"os"
	"path/filepath"
)

// ProjectType classifies a project root by its sentinel files.
type ProjectType string

const (
	ProjectRust       ProjectType = "rust"
	ProjectJavaScript ProjectType = "javascript"
	ProjectPython     ProjectType = "python"
	ProjectGo         ProjectType = "go"
	ProjectJava       ProjectType = "java"
	ProjectKotlin     ProjectType = "kotlin"
	ProjectGit        ProjectType = "git"
	ProjectGeneric    ProjectType = "generic"
)

// sentinelFiles lists, for each project type, the file names that
// identify a root as that type. Checked in this order; the first match
// wins, so more specific ecosystems are listed ahead of Git/Generic.
var sentinelFiles = []struct {
	pt    ProjectType
	files []string
}{
	{ProjectRust, []string{"Cargo.toml"}},
	{ProjectGo, []string{"go.mod"}},
	{ProjectJavaScript, []string{"package.json"}},
	{ProjectPython, []string{"pyproject.toml", "setup.py", "requirements.txt"}},
	{ProjectJava, []string{"pom.xml", "build.gradle"}},
	{ProjectKotlin, []string{"build.gradle.kts"}},
	{ProjectGit, []string{".git"}},
}

// ProjectInfo describes a project root's detected type and the sentinel
// files that identified it.
type ProjectInfo struct {
	Root         string
	Type         ProjectType
	SentinelHits []string
}

// DetectProject classifies root by probing for sentinel files, returning
// ProjectGeneric if none match.
func DetectProject(root string) ProjectInfo {
	info := ProjectInfo{Root: root, Type: ProjectGeneric}
	for _, group := range sentinelFiles {
		var hits []string
		for _, name := range group.files {
			if _, err := os.Stat(filepath.Join(root, name)); err == nil {
				hits = append(hits, name)
			}
		}
		if len(hits) > 0 {
			info.Type = group.pt
			info.SentinelHits = hits
			return info
		}
	}
	return info
}

// priorityPatterns are the built-in entry-point globs per project type,
// boosted by score.go on top of whatever a project's own config adds.
var priorityPatterns = map[ProjectType][]string{
	ProjectRust:       {"main.rs", "lib.rs", "mod.rs"},
	ProjectGo:         {"main.go", "*.go"},
	ProjectJavaScript: {"index.*", "main.*", "app.*"},
	ProjectPython:     {"__init__.py", "main.py", "app.py"},
	ProjectJava:       {"Main.java"},
	ProjectKotlin:     {"Main.kt"},
}

// sentinelHashNames returns the sentinel file names relevant to a
// project's type, used by the Cache to compute a cheap directory hash
// without a full tree walk.
func sentinelHashNames(pt ProjectType) []string {
	for _, group := range sentinelFiles {
		if group.pt == pt {
			return group.files
		}
	}
	return nil
}
