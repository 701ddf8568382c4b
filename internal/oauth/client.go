package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/termai-dev/termai/internal/apperr"
	. "github.com/termai-dev/termai/internal/logging"
	"github.com/termai-dev/termai/internal/pkce"
)

// Tokens is the result of a successful authorization or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IDToken      string
	TokenType    string
}

// ProviderConfig describes one OAuth-capable provider's endpoints and
// static client identity.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURI  string
	CallbackPort int
	CallbackPath string
	Scopes       []string
}

// Client drives the full PKCE authorization-code flow for one provider.
type Client struct {
	cfg      ProviderConfig
	listener *Listener
	http     *http.Client
}

// NewClient builds a Client for the given provider configuration.
func NewClient(cfg ProviderConfig) *Client {
	return &Client{
		cfg:      cfg,
		listener: NewListener(cfg.CallbackPort, cfg.CallbackPath),
		http:     &http.Client{},
	}
}

// authorizeTimeout is the callback listener's receive timeout for an
// interactive login; WaitForCallback's outer wait is 5s longer.
const authorizeTimeout = 300 * time.Second

// Authorize drives the full flow: build the URL, print and best-effort
// open it, wait for the callback, verify state, and exchange the code.
func (c *Client) Authorize(ctx context.Context) (*Tokens, error) {
	pair, err := pkce.New()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "generate PKCE pair", err)
	}

	authURL := c.buildAuthURL(pair)
	fmt.Println("Open this URL to authenticate:")
	fmt.Println(authURL)
	if err := openBrowser(authURL); err != nil {
		L_warn("oauth: failed to open browser automatically", "error", err)
	}

	result, err := c.listener.WaitForCallback(ctx, authorizeTimeout)
	if err != nil {
		return nil, err
	}
	if result.IsError() {
		return nil, apperr.New(apperr.KindProviderError,
			fmt.Sprintf("%s: %s", result.Error, result.ErrorDescription))
	}
	if result.State != pair.State {
		return nil, apperr.New(apperr.KindCsrfMismatch, "OAuth callback state did not match the state sent in the authorization request")
	}

	return c.exchangeCode(ctx, result.Code, pair.Verifier)
}

func (c *Client) buildAuthURL(pair *pkce.Pair) string {
	u, _ := url.Parse(c.cfg.AuthURL)
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.cfg.Scopes, " "))
	q.Set("state", pair.State)
	q.Set("code_challenge", pair.Challenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) exchangeCode(ctx context.Context, code, verifier string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("code_verifier", verifier)

	return c.postForm(ctx, form)
}

// Refresh exchanges a refresh token for a new access token using the
// same endpoint and error surface as the initial exchange.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}
	form.Set("refresh_token", refreshToken)

	tokens, err := c.postForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if tokens.RefreshToken == "" {
		// Some providers omit refresh_token on a refresh response; the
		// old one remains valid until it is itself rotated.
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
}

func (c *Client) postForm(ctx context.Context, form url.Values) (*Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "token endpoint request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "read token response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperr.New(apperr.KindAuthenticationExpired, "token endpoint rejected credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.KindProviderError,
			fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 1000)))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindParseFailure, "parse token response: "+truncate(string(body), 1000), err)
	}

	return &Tokens{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
		IDToken:      parsed.IDToken,
		TokenType:    parsed.TokenType,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// openBrowser best-effort launches the platform browser. Failure is
// never fatal; the URL was already printed for the user to copy.
func openBrowser(target string) error {
	var cmd string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		cmd, args = "open", []string{target}
	case "windows":
		cmd, args = "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		cmd, args = "xdg-open", []string{target}
	}
	return exec.Command(cmd, args...).Start()
}

// PortFromRedirectURI extracts the port a redirect_uri targets, used to
// keep the callback listener's bound port consistent with the
// registered URI.
func PortFromRedirectURI(redirectURI string) (int, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Port())
}
