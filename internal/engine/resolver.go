package engine

import (
	"context"
	"fmt"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/config"
	"github.com/termai-dev/termai/internal/llm"
	"github.com/termai-dev/termai/internal/oauth"
)

// CredentialResolver implements session.CredentialResolver: OAuth wins
// if a dispatcher is OAuth-capable and its provider has tokens stored;
// only when no tokens were ever stored does the resolver fall back to a
// Config Service/environment API key. Any other OAuth error (such as an
// expired token with no refresh token) is returned as is. A dispatcher
// declared AuthModeAPIKey never consults OAuth.
type CredentialResolver struct {
	cfg        *config.Service
	oauthMgrs  map[string]*oauth.Manager // keyed by provider id
}

// NewCredentialResolver wires a resolver over the Config Service and the
// set of providers that have an OAuth manager configured. Providers
// absent from oauthMgrs always resolve via API key even if their
// dispatcher reports AuthModeOAuthBearer.
func NewCredentialResolver(cfg *config.Service, oauthMgrs map[string]*oauth.Manager) *CredentialResolver {
	return &CredentialResolver{cfg: cfg, oauthMgrs: oauthMgrs}
}

// Resolve satisfies session.CredentialResolver.
func (r *CredentialResolver) Resolve(ctx context.Context, providerID string, mode llm.AuthMode) (llm.Credential, error) {
	if mode == llm.AuthModeOAuthBearer {
		if mgr, ok := r.oauthMgrs[providerID]; ok {
			token, err := mgr.GetValidToken(ctx)
			if err != nil {
				return llm.Credential{}, err
			}
			if token != "" {
				return llm.Credential{Mode: llm.AuthModeOAuthBearer, Token: token}, nil
			}
			// GetValidToken returned ("", nil): no tokens were ever
			// stored for this provider. Fall through to an API key.
		}
	}

	key, err := r.apiKey(providerID)
	if err != nil {
		return llm.Credential{}, err
	}
	return llm.Credential{Mode: llm.AuthModeAPIKey, Token: key}, nil
}

func (r *CredentialResolver) apiKey(providerID string) (string, error) {
	key, err := r.cfg.Fetch(config.APIKeyKey(providerID))
	if err != nil && err != config.ErrNotFound {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	if envKey := config.APIKeyFromEnv(providerID); envKey != "" {
		return envKey, nil
	}
	return "", apperr.New(apperr.KindConfigurationMissing,
		fmt.Sprintf("no API key or OAuth session available for provider %q", providerID))
}
