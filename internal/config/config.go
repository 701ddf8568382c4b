package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"

	. "github.com/termai-dev/termai/internal/logging"
)

// isMinimalJSON reports whether data is empty or parses to an empty
// object, the condition under which Load falls back to built-in
// defaults instead of treating the file as an explicit empty config.
func isMinimalJSON(data []byte) bool {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return true
	}
	return len(m) == 0
}

// ProviderConfig is the on-disk description of one provider instance:
// enough for the engine to build a Dispatcher without the provider
// package knowing anything about the config file format.
type ProviderConfig struct {
	Type           string `json:"type"`                    // "anthropic", "openai", "ollama", "xai"
	AuthMode       string `json:"authMode,omitempty"`       // "apikey" (default) or "oauth"
	BaseURL        string `json:"baseURL,omitempty"`        // override for OpenAI-compatible / Ollama endpoints
	Model          string `json:"model,omitempty"`          // default model id for this provider
	MaxTokens      int    `json:"maxTokens,omitempty"`       // default output limit
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"` // request timeout
}

// AgentConfig selects which provider handles ordinary turns and the
// default system prompt used when the caller doesn't supply one.
type AgentConfig struct {
	Provider     string `json:"provider"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Config is the engine's top-level on-disk configuration: provider
// instances plus which one is the default. Session storage, context
// analysis, and per-project overrides live in their own narrower
// configs (SessionConfig lives in the Store; ContextConfig lives in
// .termai.toml via ProjectConfig).
type Config struct {
	Providers map[string]ProviderConfig `json:"providers"`
	Agent     AgentConfig               `json:"agent"`
}

// LoadResult carries the loaded config plus where it came from, so
// callers can report the active path without re-deriving it.
type LoadResult struct {
	Config     *Config
	SourcePath string
}

func defaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"anthropic": {Type: "anthropic", Model: "claude-sonnet-4-20250514", MaxTokens: 8192, TimeoutSeconds: 120},
		},
		Agent: AgentConfig{Provider: "anthropic"},
	}
}

// configFileName is the well-known on-disk config file name, resolved
// relative to the base directory (~/.termai by default, or CONFIG_DIR).
const configFileName = "config.json"

// Load reads <base>/config.json, backfilling each provider's Type from
// its map key and merging selectively over the built-in defaults so a
// partial file never wipes out unspecified fields. A missing or empty
// file is not an error: Load returns the defaults and writes them out
// so the file exists for the next run.
func Load(basePath string) (*LoadResult, error) {
	path := filepath.Join(basePath, configFileName)

	data, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaultConfig()

	if !exists || isMinimalJSON(data) {
		L_debug("config: no existing config, using defaults", "path", path)
		applyProviderEnvFallbacks(cfg)
		if err := BackupAndWriteJSON(path, cfg, DefaultBackupCount); err != nil {
			L_warn("config: failed to write default config", "path", path, "error", err)
		}
		return &LoadResult{Config: cfg, SourcePath: path}, nil
	}

	if err := mergeJSONConfig(cfg, data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyProviderEnvFallbacks(cfg)

	L_debug("config: loaded", "path", path, "providers", len(cfg.Providers), "agent", cfg.Agent.Provider)
	return &LoadResult{Config: cfg, SourcePath: path}, nil
}

// applyProviderEnvFallbacks backfills a provider's Type from its map
// key when the file omitted it, so a config.json entry like
// "openai": {"model": "gpt-4o"} still resolves to type "openai".
func applyProviderEnvFallbacks(cfg *Config) {
	for id, p := range cfg.Providers {
		if p.Type == "" {
			p.Type = id
			cfg.Providers[id] = p
		}
	}
}

// mergeJSONConfig deep-merges JSON data into an existing config. Only
// fields actually present in the JSON override cfg's current values,
// so a config.json that specifies one provider doesn't erase the
// built-in defaults for the others.
func mergeJSONConfig(cfg *Config, data []byte) error {
	var rawMap map[string]interface{}
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	var src Config
	if err := json.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("parse into config: %w", err)
	}

	if providers, ok := rawMap["providers"].(map[string]interface{}); ok {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
		for id := range providers {
			existing := cfg.Providers[id]
			if err := mergo.Merge(&existing, src.Providers[id], mergo.WithOverride); err != nil {
				return err
			}
			cfg.Providers[id] = existing
		}
	}
	if _, ok := rawMap["agent"]; ok {
		if err := mergo.Merge(&cfg.Agent, src.Agent, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}
