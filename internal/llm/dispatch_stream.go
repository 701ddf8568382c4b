package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

// StreamDispatcher implements the streaming SSE collector flavor: the
// request is issued with Accept: text/event-stream, and the response
// body is a sequence of "data: " lines, each carrying a JSON payload.
// The dispatcher drains the whole stream and returns the final
// collected result rather than exposing partial frames to the caller,
// though onDelta is invoked as text arrives for UI-layer use.
type StreamDispatcher struct {
	cfg    DispatcherConfig
	client *http.Client
}

// NewStreamDispatcher builds a dispatcher for the streaming SSE flavor.
func NewStreamDispatcher(cfg DispatcherConfig, client *http.Client) *StreamDispatcher {
	cfg.Flavor = FlavorStreamingSSE
	if client == nil {
		client = &http.Client{}
	}
	return &StreamDispatcher{cfg: cfg, client: client}
}

func (d *StreamDispatcher) ProviderID() string { return d.cfg.ProviderID }
func (d *StreamDispatcher) Flavor() Flavor      { return FlavorStreamingSSE }
func (d *StreamDispatcher) AuthMode() AuthMode  { return d.cfg.AuthMode }
func (d *StreamDispatcher) Model() string       { return d.cfg.Model }

type streamInputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamRequest struct {
	Model     string            `json:"model"`
	System    string            `json:"system,omitempty"`
	Input     []streamInputItem `json:"input"`
	MaxTokens int               `json:"max_output_tokens,omitempty"`
	Stream    bool              `json:"stream"`
}

// streamEvent is the envelope an SSE frame's JSON payload may carry: a
// completion event wrapping the structured result under "response", or
// the structured result itself at the top level (the fallback shape).
type streamEvent struct {
	Type     string           `json:"type"`
	Response *structuredResult `json:"response"`
	Delta    string           `json:"delta"`
}

type structuredResult struct {
	Output []structuredOutputItem `json:"output"`
}

// Chat implements Dispatcher.Chat for the streaming SSE flavor.
func (d *StreamDispatcher) Chat(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, onDelta func(string)) ([]types.Message, error) {
	if err := checkInputLen(sumContentLength(systemPrompt, messages)); err != nil {
		return nil, err
	}

	input := make([]streamInputItem, len(messages))
	for i, m := range messages {
		input[i] = streamInputItem{Role: string(m.Role), Content: m.Content}
	}

	body, err := json.Marshal(streamRequest{
		Model:     d.cfg.Model,
		System:    systemPrompt,
		Input:     input,
		MaxTokens: d.cfg.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseFailure, "encode stream request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "provider request failed", err)
	}
	defer resp.Body.Close()

	raw, result, err := collectSSE(resp.Body, onDelta)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyProviderError(resp.StatusCode, raw)
	}
	if result == nil {
		return nil, apperr.New(apperr.KindParseFailure,
			"no response.completed event and no fallback-parseable event: "+truncateBody(raw, 1000))
	}

	return []types.Message{{
		Role:    types.RoleAssistant,
		Content: extractStructuredText(result.Output),
		Type:    types.MessageStandard,
	}}, nil
}

// collectSSE scans a text/event-stream body line by line. Lines
// beginning "data: " carry a JSON payload; an empty payload or the
// literal "[DONE]" are skipped. Each payload is inspected for a
// response.completed/response.done event whose "response" field holds
// the structured result, falling back to treating the payload itself as
// the structured result when it parses as one. The last successfully
// captured result wins. The raw body is accumulated for error
// reporting regardless of parse outcome.
func collectSSE(body io.Reader, onDelta func(string)) ([]byte, *structuredResult, error) {
	var raw bytes.Buffer
	tee := bufio.NewScanner(io.TeeReader(body, &raw))
	tee.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var last *structuredResult

	for tee.Scan() {
		line := tee.Text()
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err == nil {
			if ev.Delta != "" && onDelta != nil {
				onDelta(ev.Delta)
			}
			if (ev.Type == "response.completed" || ev.Type == "response.done") && ev.Response != nil {
				last = ev.Response
				continue
			}
		}

		var fallback structuredResult
		if err := json.Unmarshal([]byte(payload), &fallback); err == nil && len(fallback.Output) > 0 {
			last = &fallback
		}
	}

	return raw.Bytes(), last, nil
}
