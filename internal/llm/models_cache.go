package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/termai-dev/termai/internal/config"
)

// modelsCacheTTL is the freshness window for a cached model list.
const modelsCacheTTL = 24 * time.Hour

// chatCapablePrefixes and chatCapableExcludes implement the textual
// model-id rules deciding which models a provider's full catalog are
// worth surfacing for chat.
var chatCapablePrefixes = []string{"gpt", "o1", "o3", "o4", "chatgpt"}

var chatCapableExcludes = []string{
	"embedding", "whisper", "tts", "dall-e", "davinci", "babbage",
	"curie", "ada", "moderation", "realtime", "transcription", "audio",
}

// IsChatCapable applies the chat-capable filter to a single model id.
func IsChatCapable(id string) bool {
	lower := strings.ToLower(id)
	matchesPrefix := false
	for _, p := range chatCapablePrefixes {
		if strings.HasPrefix(lower, p) {
			matchesPrefix = true
			break
		}
	}
	if !matchesPrefix {
		return false
	}
	for _, ex := range chatCapableExcludes {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	return true
}

// FilterChatCapable returns the subset of ids that are chat-capable,
// preserving input order.
func FilterChatCapable(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if IsChatCapable(id) {
			out = append(out, id)
		}
	}
	return out
}

// ConfigService is the subset of config.Service the models cache needs.
type ConfigService interface {
	Fetch(key string) (string, error)
	Write(key, value string) error
}

// ModelsCache keys a provider's chat-capable model list under two Config
// Service entries: the serialized list and an RFC-3339 cache timestamp.
type ModelsCache struct {
	cfg ConfigService
}

// NewModelsCache wraps a config service behind the models cache.
func NewModelsCache(cfg ConfigService) *ModelsCache {
	return &ModelsCache{cfg: cfg}
}

func cacheListKey(providerID string) string {
	return config.KeyModelsCacheJSON + "." + providerID
}

func cacheTimestampKey(providerID string) string {
	return config.KeyModelsCacheUpdatedAt + "." + providerID
}

// GetModels returns the cached model list if it exists and is within
// TTL; otherwise it fetches from the provider, filters to chat-capable
// models, persists the result, and returns it.
func (c *ModelsCache) GetModels(ctx context.Context, providerID string, lister ModelLister, cred Credential) ([]ModelInfo, error) {
	if cached, ok := c.readCache(providerID); ok {
		return cached, nil
	}
	return c.RefreshModels(ctx, providerID, lister, cred)
}

// RefreshModels bypasses the cache read but writes the new snapshot.
func (c *ModelsCache) RefreshModels(ctx context.Context, providerID string, lister ModelLister, cred Credential) ([]ModelInfo, error) {
	models, err := lister.ListModels(ctx, cred)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(models))
	byID := make(map[string]ModelInfo, len(models))
	for i, m := range models {
		ids[i] = m.ID
		byID[m.ID] = m
	}
	filteredIDs := FilterChatCapable(ids)
	filtered := make([]ModelInfo, 0, len(filteredIDs))
	for _, id := range filteredIDs {
		filtered = append(filtered, byID[id])
	}

	c.writeCache(providerID, filtered)
	return filtered, nil
}

func (c *ModelsCache) readCache(providerID string) ([]ModelInfo, bool) {
	tsStr, err := c.cfg.Fetch(cacheTimestampKey(providerID))
	if err != nil || tsStr == "" {
		return nil, false
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return nil, false
	}
	if time.Now().After(ts.Add(modelsCacheTTL)) {
		return nil, false
	}

	listJSON, err := c.cfg.Fetch(cacheListKey(providerID))
	if err != nil || listJSON == "" {
		return nil, false
	}
	var models []ModelInfo
	if err := json.Unmarshal([]byte(listJSON), &models); err != nil {
		return nil, false
	}
	return models, true
}

func (c *ModelsCache) writeCache(providerID string, models []ModelInfo) {
	data, err := json.Marshal(models)
	if err != nil {
		return
	}
	_ = c.cfg.Write(cacheListKey(providerID), string(data))
	_ = c.cfg.Write(cacheTimestampKey(providerID), time.Now().UTC().Format(time.RFC3339))
}
