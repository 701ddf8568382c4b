package context

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/termai-dev/termai/internal/config"
)

// Analyzer walks a project root and scores every reachable file.
type Analyzer struct {
	cache *Cache
}

// NewAnalyzer wires an analyzer over an optional cache. A nil cache
// disables caching; every call re-walks the tree.
func NewAnalyzer(cache *Cache) *Analyzer {
	return &Analyzer{cache: cache}
}

// Analyze classifies root's project type and returns a relevance-scored
// file list, consulting the cache first when cfg.EnableCache is set.
func (a *Analyzer) Analyze(root string, cfg config.ContextConfig) (ProjectInfo, []ContextScore, error) {
	info := DetectProject(root)

	if cfg.EnableCache && a.cache != nil {
		if scores, ok := a.cache.Lookup(root, info, cfg); ok {
			return info, scores, nil
		}
	}

	scores, err := a.walk(root, info, cfg)
	if err != nil {
		return info, nil, err
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	if cfg.EnableCache && a.cache != nil {
		a.cache.Store(root, info, cfg, scores)
	}
	return info, scores, nil
}

func (a *Analyzer) walk(root string, info ProjectInfo, cfg config.ContextConfig) ([]ContextScore, error) {
	var scores []ContextScore

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if matchesAny(cfg.Exclude, rel+"/") || matchesAny(cfg.Exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(cfg.Exclude, rel) {
			return nil
		}
		if len(cfg.Include) > 0 && !matchesAny(cfg.Include, rel) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		scores = append(scores, computeScore(rel, fi, info.Type, cfg.PriorityPatterns))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}
