package llm

import (
	"context"

	"github.com/termai-dev/termai/internal/types"
)

// AuthMode is a dispatcher's declared authentication scheme.
type AuthMode int

const (
	AuthModeAPIKey AuthMode = iota
	AuthModeOAuthBearer
)

// Flavor is the tagged variant distinguishing the three dispatcher
// shapes named in the component design. Modeled as a flat enum with
// per-variant functions rather than an inheritance hierarchy, so
// exhaustiveness is checkable at each switch.
type Flavor int

const (
	FlavorSimpleJSON Flavor = iota
	FlavorStructured
	FlavorStreamingSSE
)

// ModelInfo describes one chat-capable model a provider exposes.
type ModelInfo struct {
	ID            string
	DisplayName   string
	ContextTokens int
}

// DispatcherConfig carries the per-provider wiring a Dispatcher needs:
// endpoints, auth mode, model id, and which of the three request/
// response shapes to use.
type DispatcherConfig struct {
	ProviderID   string
	Flavor       Flavor
	AuthMode     AuthMode
	Endpoint     string
	ModelsURL    string // empty if the provider has no /models endpoint
	Model        string
	MaxTokens    int
	ContextWindow int
}

// Credential is what a Dispatcher needs to authenticate one call: either
// an API key or a live OAuth bearer token, resolved by the caller ahead
// of time (the Token Manager, or a raw API key from Config Service/env).
type Credential struct {
	Mode  AuthMode
	Token string
}

// Dispatcher is the uniform interface over a heterogeneous LLM back-end.
// chat() shapes a request for session's messages, sends it, and returns
// the assistant messages to append; it does not mutate session itself so
// the Session Manager stays the sole writer of persisted state.
type Dispatcher interface {
	ProviderID() string
	Flavor() Flavor
	AuthMode() AuthMode
	Model() string

	// Chat sends systemPrompt plus messages to the provider and returns
	// the resulting assistant message(s). onDelta, when non-nil, is
	// invoked with incremental text as a streaming dispatcher drains its
	// response; non-streaming dispatchers ignore it.
	Chat(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, onDelta func(string)) ([]types.Message, error)
}

// ModelLister is implemented by dispatchers whose provider exposes a
// GET /models endpoint for the Models Cache to query.
type ModelLister interface {
	ListModels(ctx context.Context, cred Credential) ([]ModelInfo, error)
}

// StatefulDispatcher is implemented by dispatchers that can chain
// context server-side through an opaque continuation token (e.g. a
// structured-output provider's response id), so the caller doesn't have
// to resend the full message history on every turn. priorState is
// whatever nextState a previous call returned, or "" on a session's
// first turn; nextState is persisted by the caller and replayed on the
// next call.
type StatefulDispatcher interface {
	Dispatcher
	ChatWithState(ctx context.Context, cred Credential, systemPrompt string, messages []types.Message, priorState string, onDelta func(string)) (reply []types.Message, nextState string, err error)
}

// inputSafetyCeiling is the absolute pre-flight size guard: the summed
// content length across all messages must not exceed this before a
// request is ever sent.
const inputSafetyCeiling = 500_000

// sumContentLength totals the character length counted toward the
// pre-flight size guard and the compaction threshold.
func sumContentLength(systemPrompt string, messages []types.Message) int {
	total := len(systemPrompt)
	for _, m := range messages {
		total += m.Len()
	}
	return total
}
