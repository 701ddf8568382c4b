package context

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/termai-dev/termai/internal/config"
	. "github.com/termai-dev/termai/internal/logging"
)

// maxAge is the default staleness bound for a project cache entry.
const maxAge = 24 * time.Hour

// ProjectCacheEntry is a Cache's persisted verdict for one project root.
type ProjectCacheEntry struct {
	Project       ProjectInfo
	Scores        []ContextScore
	CreatedAt     time.Time
	DirectoryHash string
	ConfigHash    string
}

// FileCacheEntry is a Cache's persisted verdict for one file, invalidated
// by content hash rather than by project-level directory/config hashes.
type FileCacheEntry struct {
	Score       ContextScore
	ContentHash string
	AnalyzedAt  time.Time
}

// Cache holds the Context Analyzer's results across runs, persisted as
// two JSON files (projects, files) under a cache directory, invalidated
// by directory hash, config hash, or age, and proactively invalidated by
// fsnotify when a watched root changes.
type Cache struct {
	mu       sync.Mutex
	dir      string
	projects map[string]ProjectCacheEntry
	files    map[string]FileCacheEntry

	watcher  *fsnotify.Watcher
	watching map[string]bool
}

func (c *Cache) projectsPath() string { return filepath.Join(c.dir, "projects.json") }
func (c *Cache) filesPath() string    { return filepath.Join(c.dir, "files.json") }

// NewCache opens (or creates) a cache under dir, loading any persisted
// entries and purging ones older than maxAge.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := &Cache{
		dir:      dir,
		projects: make(map[string]ProjectCacheEntry),
		files:    make(map[string]FileCacheEntry),
		watching: make(map[string]bool),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	c.purgeExpired()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		L_warn("context: failed to create cache watcher, invalidation is age/hash-only", "error", err)
		return c, nil
	}
	c.watcher = watcher
	go c.watchLoop()
	return c, nil
}

func (c *Cache) load() error {
	if raw, err := os.ReadFile(c.projectsPath()); err == nil {
		if jsonErr := json.Unmarshal(raw, &c.projects); jsonErr != nil {
			L_warn("context: discarding unreadable project cache", "error", jsonErr)
			c.projects = make(map[string]ProjectCacheEntry)
		}
	}
	if raw, err := os.ReadFile(c.filesPath()); err == nil {
		if jsonErr := json.Unmarshal(raw, &c.files); jsonErr != nil {
			L_warn("context: discarding unreadable file cache", "error", jsonErr)
			c.files = make(map[string]FileCacheEntry)
		}
	}
	return nil
}

func (c *Cache) purgeExpired() {
	now := time.Now()
	for key, entry := range c.projects {
		if now.Sub(entry.CreatedAt) >= maxAge {
			delete(c.projects, key)
		}
	}
}

// Save persists both cache maps to disk.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Cache) saveLocked() error {
	projectsJSON, err := json.Marshal(c.projects)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.projectsPath(), projectsJSON, 0600); err != nil {
		return err
	}
	filesJSON, err := json.Marshal(c.files)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filesPath(), filesJSON, 0600)
}

func normalizeRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return filepath.Clean(abs)
}

// Lookup returns a cached score list for root if it is still valid: not
// expired, and both its directory and config hash match the current
// state.
func (c *Cache) Lookup(root string, info ProjectInfo, cfg config.ContextConfig) ([]ContextScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := normalizeRoot(root)
	entry, ok := c.projects[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.CreatedAt) >= maxAge {
		delete(c.projects, key)
		return nil, false
	}
	if entry.DirectoryHash != directoryHash(root, info.Type) {
		return nil, false
	}
	if entry.ConfigHash != configHash(cfg) {
		return nil, false
	}
	return entry.Scores, true
}

// Store records a fresh analysis result for root and begins watching it
// for changes, then persists both cache files to disk.
func (c *Cache) Store(root string, info ProjectInfo, cfg config.ContextConfig, scores []ContextScore) {
	c.mu.Lock()
	key := normalizeRoot(root)
	c.projects[key] = ProjectCacheEntry{
		Project:       info,
		Scores:        scores,
		CreatedAt:     time.Now(),
		DirectoryHash: directoryHash(root, info.Type),
		ConfigHash:    configHash(cfg),
	}
	c.watchRootLocked(root)
	err := c.saveLocked()
	c.mu.Unlock()

	if err != nil {
		L_warn("context: failed to persist cache", "error", err)
	}
}

// StoreFile records a single file's score, keyed by its path, together
// with the content hash LookupFile checks it against.
func (c *Cache) StoreFile(path, contentHash string, score ContextScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = FileCacheEntry{Score: score, ContentHash: contentHash, AnalyzedAt: time.Now()}
}

// LookupFile returns a cached file score if its content hash still
// matches.
func (c *Cache) LookupFile(path, contentHash string) (ContextScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.files[path]
	if !ok || entry.ContentHash != contentHash {
		return ContextScore{}, false
	}
	return entry.Score, true
}

func (c *Cache) watchRootLocked(root string) {
	if c.watcher == nil || c.watching[root] {
		return
	}
	if err := c.watcher.Add(root); err != nil {
		L_warn("context: failed to watch project root", "root", root, "error", err)
		return
	}
	c.watching[root] = true
}

func (c *Cache) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.invalidateContaining(event.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			L_warn("context: cache watcher error", "error", err)
		}
	}
}

// invalidateContaining drops any project cache entry whose root is an
// ancestor of changedPath, forcing the next Analyze to re-walk it.
func (c *Cache) invalidateContaining(changedPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for root := range c.watching {
		rel, err := filepath.Rel(root, changedPath)
		if err != nil || len(rel) >= 2 && rel[:2] == ".." {
			continue
		}
		delete(c.projects, normalizeRoot(root))
	}
}

// Close stops the fsnotify watcher.
func (c *Cache) Close() {
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// directoryHash hashes the sentinel file names relevant to pt together
// with their modification times: cheap enough to check on every Analyze
// call without a full tree walk.
func directoryHash(root string, pt ProjectType) string {
	h := sha256.New()
	for _, name := range sentinelHashNames(pt) {
		fi, err := os.Stat(filepath.Join(root, name))
		if err != nil {
			continue
		}
		h.Write([]byte(name))
		h.Write([]byte(fi.ModTime().UTC().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// configHash hashes the include/exclude/priority/overflow fields that
// shape scoring, so a .termai.toml edit invalidates the cache even if no
// file in the tree changed.
func configHash(cfg config.ContextConfig) string {
	h := sha256.New()
	for _, s := range cfg.Include {
		h.Write([]byte("i:" + s))
	}
	for _, s := range cfg.Exclude {
		h.Write([]byte("e:" + s))
	}
	for _, s := range cfg.PriorityPatterns {
		h.Write([]byte("p:" + s))
	}
	h.Write([]byte("o:" + cfg.Overflow))
	return hex.EncodeToString(h.Sum(nil))
}
