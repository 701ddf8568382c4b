package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

// StructuredDispatcher implements the structured-output, non-streaming
// flavor: input is a sequence of {role, content} objects, and the
// response carries typed outputs (message / tool-call / reasoning).
// Reasoning outputs are discarded; message outputs contribute text;
// tool-call outputs are reserved for future extension and ignored.
type StructuredDispatcher struct {
	cfg    DispatcherConfig
	client *http.Client
}

// NewStructuredDispatcher builds a dispatcher for the structured-output
// flavor.
func NewStructuredDispatcher(cfg DispatcherConfig, client *http.Client) *StructuredDispatcher {
	cfg.Flavor = FlavorStructured
	if client == nil {
		client = &http.Client{}
	}
	return &StructuredDispatcher{cfg: cfg, client: client}
}

func (d *StructuredDispatcher) ProviderID() string { return d.cfg.ProviderID }
func (d *StructuredDispatcher) Flavor() Flavor      { return FlavorStructured }
func (d *StructuredDispatcher) AuthMode() AuthMode  { return d.cfg.AuthMode }
func (d *StructuredDispatcher) Model() string       { return d.cfg.Model }

type structuredInputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type structuredRequest struct {
	Model              string                `json:"model"`
	Instructions       string                `json:"instructions,omitempty"`
	Input              []structuredInputItem `json:"input"`
	MaxTokens          int                   `json:"max_output_tokens,omitempty"`
	PreviousResponseID string                `json:"previous_response_id,omitempty"`
}

// structuredOutputItem is a typed output the response carries: a
// "message", a "tool_call" (reserved, ignored), or "reasoning"
// (discarded as metadata).
type structuredOutputItem struct {
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type structuredResponse struct {
	ID     string                 `json:"id"`
	Output []structuredOutputItem `json:"output"`
}

// Chat implements Dispatcher.Chat for the structured-output flavor. It
// never chains a previous_response_id; callers that want that should go
// through ChatWithState instead.
func (d *StructuredDispatcher) Chat(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, onDelta func(string)) ([]types.Message, error) {
	reply, _, err := d.ChatWithState(ctx, cred, systemPrompt, messages, "", onDelta)
	return reply, err
}

// ChatWithState implements StatefulDispatcher: priorState, when set, is
// sent as previous_response_id so the provider can resume from a prior
// turn without the full history being resent; nextState is the response
// id the caller should persist and replay on the session's next turn.
func (d *StructuredDispatcher) ChatWithState(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, priorState string, _ func(string)) ([]types.Message, string, error) {
	if err := checkInputLen(sumContentLength(systemPrompt, messages)); err != nil {
		return nil, "", err
	}

	input := make([]structuredInputItem, len(messages))
	for i, m := range messages {
		input[i] = structuredInputItem{Role: string(m.Role), Content: m.Content}
	}

	body, err := json.Marshal(structuredRequest{
		Model:              d.cfg.Model,
		Instructions:       systemPrompt,
		Input:              input,
		MaxTokens:          d.cfg.MaxTokens,
		PreviousResponseID: priorState,
	})
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindParseFailure, "encode structured request", err)
	}

	respBody, err := doJSONRequest(ctx, d.client, d.cfg.Endpoint, cred, body, nil)
	if err != nil {
		return nil, "", err
	}

	var parsed structuredResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, "", apperr.Wrap(apperr.KindParseFailure, "parse structured response: "+truncateBody(respBody, 1000), err)
	}

	reply := []types.Message{{
		Role:    types.RoleAssistant,
		Content: extractStructuredText(parsed.Output),
		Type:    types.MessageStandard,
	}}
	return reply, parsed.ID, nil
}

// extractStructuredText concatenates the text of every "message" output
// item, discarding "reasoning" and "tool_call" items.
func extractStructuredText(items []structuredOutputItem) string {
	var sb strings.Builder
	for _, item := range items {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}
