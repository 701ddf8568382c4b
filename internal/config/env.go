package config

import (
	"os"
	"strconv"
	"strings"
)

// Env holds the closed set of environment variables the engine reads,
// parsed once at startup. A field is the zero value when its variable is
// unset, which every caller treats as "use the built-in default".
type Env struct {
	Provider         string
	SystemPrompt     string
	Session          string
	Debug            bool
	ConfigDir        string
	SmartContext     bool
	MaxContextTokens int
	ContextDirs      []string
	ExcludePatterns  []string
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v != "" && v != "0" && v != "false"
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadEnv reads the documented environment variables. Provider-specific
// API keys are looked up separately via APIKeyEnvNames since each
// provider declares its own two canonical names.
func LoadEnv() Env {
	maxTokens, _ := strconv.Atoi(os.Getenv("MAX_CONTEXT_TOKENS"))
	return Env{
		Provider:         os.Getenv("PROVIDER"),
		SystemPrompt:     os.Getenv("SYSTEM_PROMPT"),
		Session:          os.Getenv("SESSION"),
		Debug:            truthy(os.Getenv("DEBUG")),
		ConfigDir:        os.Getenv("CONFIG_DIR"),
		SmartContext:     truthy(os.Getenv("SMART_CONTEXT")),
		MaxContextTokens: maxTokens,
		ContextDirs:      splitCSV(os.Getenv("CONTEXT_DIRS")),
		ExcludePatterns:  splitCSV(os.Getenv("EXCLUDE_PATTERNS")),
	}
}

// APIKeyEnvNames returns the two canonical environment variable names
// checked for a provider's API key, most-specific first. Unknown
// provider ids fall back to a single "<ID>_API_KEY"-shaped guess.
func APIKeyEnvNames(providerID string) []string {
	switch providerID {
	case "openai":
		return []string{"OPENAI_API_KEY", "OPENAI_KEY"}
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"}
	case "xai":
		return []string{"XAI_API_KEY", "GROK_API_KEY"}
	case "ollama":
		return []string{"OLLAMA_API_KEY", "OLLAMA_KEY"}
	default:
		upper := strings.ToUpper(providerID)
		return []string{upper + "_API_KEY", upper + "_KEY"}
	}
}

// APIKeyFromEnv returns the first non-empty value among a provider's
// canonical environment variable names.
func APIKeyFromEnv(providerID string) string {
	for _, name := range APIKeyEnvNames(providerID) {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
