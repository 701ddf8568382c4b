package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/config"
)

// expiryBuffer: a token expiring within this window of now is treated
// as already expired, so a request never races an imminent expiry.
const expiryBuffer = 5 * time.Minute

// ConfigService is the subset of config.Service the token manager needs.
type ConfigService interface {
	Fetch(key string) (string, error)
	Write(key, value string) error
}

// AuthState is the result of AuthStatus.
type AuthState int

const (
	NotAuthenticated AuthState = iota
	Authenticated
	Expired
)

// Status is the structured result of AuthStatus.
type Status struct {
	State      AuthState
	ExpiresAt  time.Time
	CanRefresh bool
}

// Manager combines the Config Service and an OAuth Client to provide a
// single get_valid_token-style operation to dispatchers.
type Manager struct {
	cfg    ConfigService
	client *Client
}

// NewManager builds a token manager for one provider's OAuth client.
func NewManager(cfg ConfigService, client *Client) *Manager {
	return &Manager{cfg: cfg, client: client}
}

func (m *Manager) load() (*Tokens, bool, error) {
	access, err := m.cfg.Fetch(config.KeyOAuthAccessToken)
	if err == config.ErrNotFound || access == "" {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	refresh, _ := m.cfg.Fetch(config.KeyOAuthRefreshToken)
	idToken, _ := m.cfg.Fetch(config.KeyOAuthIDToken)
	expiresAtStr, err := m.cfg.Fetch(config.KeyOAuthExpiresAt)
	if err != nil && err != config.ErrNotFound {
		return nil, false, err
	}

	var expiresAt time.Time
	if expiresAtStr != "" {
		expiresAt, _ = time.Parse(time.RFC3339, expiresAtStr)
	}

	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		IDToken:      idToken,
		ExpiresAt:    expiresAt,
	}, true, nil
}

// save writes the four token fields in sequence: access, refresh (if
// present), expiry, then id-token. Each field is its own Store write and
// the sequence as a whole is not atomic: a failure partway through
// leaves the fields written before it updated and the later ones
// holding their old values.
func (m *Manager) save(t *Tokens) error {
	if err := m.cfg.Write(config.KeyOAuthAccessToken, t.AccessToken); err != nil {
		return err
	}
	if t.RefreshToken != "" {
		if err := m.cfg.Write(config.KeyOAuthRefreshToken, t.RefreshToken); err != nil {
			return err
		}
	}
	if err := m.cfg.Write(config.KeyOAuthExpiresAt, t.ExpiresAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return m.cfg.Write(config.KeyOAuthIDToken, t.IDToken)
}

func isExpired(t *Tokens) bool {
	return !t.ExpiresAt.After(time.Now().Add(expiryBuffer))
}

// GetValidToken returns a live access token, refreshing transparently if
// the stored one is expired (per the 5-minute buffer) and a refresh
// token is present. Returns ("", nil) when no tokens are stored at
// all, signaling the caller to fall back to an API key or report
// unauthenticated.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	tokens, present, err := m.load()
	if err != nil {
		return "", err
	}
	if !present {
		return "", nil
	}

	if !isExpired(tokens) {
		return tokens.AccessToken, nil
	}

	if tokens.RefreshToken == "" {
		return "", apperr.New(apperr.KindAuthenticationExpired, "token expired and no refresh token is available; re-authentication required")
	}

	refreshed, err := m.client.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return "", err
	}
	// Token persistence failures during refresh propagate: the new
	// tokens would otherwise be silently lost.
	if err := m.save(refreshed); err != nil {
		return "", fmt.Errorf("persist refreshed tokens: %w", err)
	}
	return refreshed.AccessToken, nil
}

// Authorize drives a fresh interactive login and persists the result.
func (m *Manager) Authorize(ctx context.Context) error {
	tokens, err := m.client.Authorize(ctx)
	if err != nil {
		return err
	}
	return m.save(tokens)
}

// AuthStatus reports the current authentication state without
// performing a refresh.
func (m *Manager) AuthStatus() (Status, error) {
	tokens, present, err := m.load()
	if err != nil {
		return Status{}, err
	}
	if !present {
		return Status{State: NotAuthenticated}, nil
	}
	if isExpired(tokens) {
		return Status{State: Expired, ExpiresAt: tokens.ExpiresAt, CanRefresh: tokens.RefreshToken != ""}, nil
	}
	return Status{State: Authenticated, ExpiresAt: tokens.ExpiresAt}, nil
}

// Clear removes all stored token fields, used by an explicit logout.
func (m *Manager) Clear() error {
	for _, key := range []string{config.KeyOAuthAccessToken, config.KeyOAuthRefreshToken, config.KeyOAuthExpiresAt, config.KeyOAuthIDToken} {
		if err := m.cfg.Write(key, ""); err != nil {
			return err
		}
	}
	return nil
}
