package config

import (
	"os"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
)

// ContextConfig is the [context] section of .termai.toml.
type ContextConfig struct {
	MaxTokens        int      `toml:"max_tokens"`
	Include          []string `toml:"include"`
	Exclude          []string `toml:"exclude"`
	PriorityPatterns []string `toml:"priority_patterns"`
	EnableCache      bool     `toml:"enable_cache"`
	// Overflow selects what the optimizer does with a file that doesn't
	// fit the remaining budget: "truncate" (default), "skip", or
	// "summarize" (currently an alias for "truncate").
	Overflow string `toml:"overflow"`
	// ChunkTokenBudget caps each sub-session's share of context when the
	// chunker splits a project too large to fit one optimizer pass.
	ChunkTokenBudget int `toml:"chunk_token_budget"`
}

// ProjectMetaConfig is the [project] section of .termai.toml.
type ProjectMetaConfig struct {
	ProjectType string   `toml:"project_type"`
	EntryPoints []string `toml:"entry_points"`
}

// ProjectConfig is the parsed shape of an optional .termai.toml file at
// a project root.
type ProjectConfig struct {
	Context ContextConfig     `toml:"context"`
	Project ProjectMetaConfig `toml:"project"`
}

// DefaultProjectConfig mirrors the engine's built-in defaults, merged
// under whatever a project's .termai.toml specifies the way goclaw
// merges goclaw.json over defaults with dario.cat/mergo.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Context: ContextConfig{
			MaxTokens:        8000,
			Exclude:          []string{"**/node_modules/**", "**/.git/**", "**/vendor/**", "**/dist/**", "**/build/**"},
			EnableCache:      true,
			Overflow:         "truncate",
			ChunkTokenBudget: 4000,
		},
	}
}

// LoadProjectConfig reads and merges .termai.toml at path over the
// built-in defaults. A missing file is not an error: the defaults are
// returned unchanged.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	cfg := DefaultProjectConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var fromFile ProjectConfig
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return cfg, err
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return cfg, err
	}
	return cfg, nil
}
