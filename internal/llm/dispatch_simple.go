package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

// SimpleDispatcher implements the "Simple JSON-in, JSON-out" flavor:
// post messages plus an optional system string; the response carries an
// array of content blocks each with a textual field, concatenated into
// one assistant message.
type SimpleDispatcher struct {
	cfg    DispatcherConfig
	client *http.Client
}

// NewSimpleDispatcher builds a dispatcher for the simple JSON flavor.
func NewSimpleDispatcher(cfg DispatcherConfig, client *http.Client) *SimpleDispatcher {
	cfg.Flavor = FlavorSimpleJSON
	if client == nil {
		client = &http.Client{}
	}
	return &SimpleDispatcher{cfg: cfg, client: client}
}

func (d *SimpleDispatcher) ProviderID() string { return d.cfg.ProviderID }
func (d *SimpleDispatcher) Flavor() Flavor      { return FlavorSimpleJSON }
func (d *SimpleDispatcher) AuthMode() AuthMode  { return d.cfg.AuthMode }
func (d *SimpleDispatcher) Model() string       { return d.cfg.Model }

type simpleWireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type simpleRequest struct {
	Model     string              `json:"model"`
	System    string              `json:"system,omitempty"`
	Messages  []simpleWireMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type simpleContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type simpleResponse struct {
	Content []simpleContentBlock `json:"content"`
}

// Chat implements Dispatcher.Chat for the simple flavor. onDelta is
// unused: this flavor is non-streaming.
func (d *SimpleDispatcher) Chat(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, _ func(string)) ([]types.Message, error) {
	if err := checkInputLen(sumContentLength(systemPrompt, messages)); err != nil {
		return nil, err
	}

	wire := make([]simpleWireMessage, len(messages))
	for i, m := range messages {
		wire[i] = simpleWireMessage{Role: string(m.Role), Content: m.Content}
	}

	body, err := json.Marshal(simpleRequest{
		Model:     d.cfg.Model,
		System:    systemPrompt,
		Messages:  wire,
		MaxTokens: d.cfg.MaxTokens,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseFailure, "encode simple request", err)
	}

	respBody, err := doJSONRequest(ctx, d.client, d.cfg.Endpoint, cred, body, nil)
	if err != nil {
		return nil, err
	}

	var parsed simpleResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindParseFailure, "parse simple response: "+truncateBody(respBody, 1000), err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		text.WriteString(block.Text)
	}

	return []types.Message{{
		Role:    types.RoleAssistant,
		Content: text.String(),
		Type:    types.MessageStandard,
	}}, nil
}
