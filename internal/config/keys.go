// Package config is the typed façade over Store for API keys, provider
// choice, OAuth tokens, and model-list caches, plus the optional
// per-project .termai.toml file and the closed set of environment
// variables documented for the engine.
package config

// Well-known Store keys, centralized here to prevent stringly-typed
// drift across callers.
const (
	KeyProvider = "provider"

	KeyOAuthAccessToken  = "oauth.access_token"
	KeyOAuthRefreshToken = "oauth.refresh_token"
	KeyOAuthExpiresAt    = "oauth.expires_at"
	KeyOAuthIDToken      = "oauth.id_token"

	KeyModelsCacheJSON      = "models.cache"
	KeyModelsCacheUpdatedAt = "models.cache_updated_at"

	// KeyAPIKeyPrefix is joined with a provider id, e.g. "apikey.openai".
	KeyAPIKeyPrefix = "apikey."
)

// APIKeyKey returns the Store key an API key is kept under for the
// given provider id.
func APIKeyKey(providerID string) string {
	return KeyAPIKeyPrefix + providerID
}
