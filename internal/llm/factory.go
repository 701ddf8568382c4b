package llm

import (
	"fmt"
	"net/http"
	"time"
)

// defaultEndpoints gives each built-in provider type its chat endpoint
// and which of the three wire flavors it speaks, so a ProviderConfig
// from the config file only has to say "type" and optionally override
// the URL.
var defaultEndpoints = map[string]struct {
	endpoint string
	flavor   Flavor
	authMode AuthMode
}{
	"anthropic": {"https://api.anthropic.com/v1/messages", FlavorStreamingSSE, AuthModeOAuthBearer},
	"openai":    {"https://api.openai.com/v1/responses", FlavorStructured, AuthModeAPIKey},
	"xai":       {"https://api.x.ai/v1/chat/completions", FlavorSimpleJSON, AuthModeAPIKey},
	"ollama":    {"http://localhost:11434/api/chat", FlavorSimpleJSON, AuthModeAPIKey},
}

// BuildDispatcher constructs the Dispatcher for one provider id from its
// type and overrides, dispatching to the matching flavor's constructor.
// Unknown types are rejected at registration time rather than silently
// falling back to a default flavor. authModeStr is the raw config file
// value ("apikey", "oauth", or "" to use the provider type's default).
func BuildDispatcher(providerID, providerType, baseURL, model, authModeStr string, maxTokens, timeoutSeconds int) (Dispatcher, error) {
	defaults, ok := defaultEndpoints[providerType]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider type %q", providerType)
	}

	endpoint := defaults.endpoint
	if baseURL != "" {
		endpoint = baseURL
	}
	mode := defaults.authMode
	switch authModeStr {
	case "oauth":
		mode = AuthModeOAuthBearer
	case "apikey":
		mode = AuthModeAPIKey
	}

	cfg := DispatcherConfig{
		ProviderID: providerID,
		AuthMode:   mode,
		Endpoint:   endpoint,
		Model:      model,
		MaxTokens:  maxTokens,
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch defaults.flavor {
	case FlavorStreamingSSE:
		return NewStreamDispatcher(cfg, client), nil
	case FlavorStructured:
		return NewStructuredDispatcher(cfg, client), nil
	case FlavorSimpleJSON:
		return NewSimpleDispatcher(cfg, client), nil
	default:
		return nil, fmt.Errorf("llm: unhandled flavor %v for provider type %q", defaults.flavor, providerType)
	}
}
