package oauth

// knownProviders gives the built-in OAuth-capable providers their PKCE
// client identity and endpoints, so callers only need a provider id to
// get a working Client.
var knownProviders = map[string]ProviderConfig{
	"anthropic": {
		ClientID:     "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
		AuthURL:      "https://claude.ai/oauth/authorize",
		TokenURL:     "https://console.anthropic.com/v1/oauth/token",
		RedirectURI:  "http://localhost:54545/callback",
		CallbackPort: 54545,
		CallbackPath: "/callback",
		Scopes:       []string{"org:create_api_key", "user:profile", "user:inference"},
	},
}

// NewManagerForProvider builds a token Manager for a known OAuth-capable
// provider id. The second return value is false for providers with no
// built-in OAuth endpoints, in which case the caller should rely on API
// key authentication only.
func NewManagerForProvider(cfg ConfigService, providerID string) (*Manager, bool) {
	pcfg, ok := knownProviders[providerID]
	if !ok {
		return nil, false
	}
	return NewManager(cfg, NewClient(pcfg)), true
}
