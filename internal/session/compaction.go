package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/llm"
	. "github.com/termai-dev/termai/internal/logging"
	"github.com/termai-dev/termai/internal/store"
	"github.com/termai-dev/termai/internal/types"
)

// referenceInputCeiling mirrors the dispatcher's absolute pre-flight
// size guard; the compaction threshold is 80% of it.
const referenceInputCeiling = 500_000

// compactionThresholdRatio is the fraction of referenceInputCeiling a
// session's content must exceed before compaction is eligible.
const compactionThresholdRatio = 0.8

// NeedsCompaction reports whether a session's summed message content
// exceeds 80% of the reference input-size ceiling (400,000 characters).
// The comparison is strict: exactly at the threshold, compaction is not
// yet needed.
func NeedsCompaction(messages []types.Message) bool {
	total := 0
	for _, m := range messages {
		total += m.Len()
	}
	return float64(total) > compactionThresholdRatio*float64(referenceInputCeiling)
}

// Compactor drives the provider-side compaction endpoint: it replaces a
// session's entire message list with a server-returned sequence that
// substitutes opaque blobs for a prefix of history. Compaction is
// best-effort; callers treat any error as "leave the session untouched".
type Compactor struct {
	endpoint    string
	client      *http.Client
	store       *store.Store
	checkpoints *CheckpointStore
}

// NewCompactor builds a Compactor against a provider's compaction
// endpoint, persisting successful results through st.
func NewCompactor(endpoint string, client *http.Client, st *store.Store) *Compactor {
	if client == nil {
		client = &http.Client{}
	}
	return &Compactor{endpoint: endpoint, client: client, store: st, checkpoints: NewCheckpointStore(st)}
}

type compactionItem struct {
	Type             string `json:"type"`
	Role             string `json:"role,omitempty"`
	Content          string `json:"content,omitempty"`
	CompactionID     string `json:"compaction_id,omitempty"`
	EncryptedContent string `json:"encrypted_content,omitempty"`
}

type compactionRequest struct {
	Model string            `json:"model"`
	Input []compactionItem `json:"input"`
}

type compactionResponse struct {
	Output []compactionItem `json:"output"`
}

func toCompactionItem(m types.Message) compactionItem {
	if m.Type == types.MessageCompaction && m.Compaction != nil {
		return compactionItem{
			Type:             "compaction",
			CompactionID:     m.Compaction.CompactionID,
			EncryptedContent: m.Compaction.EncryptedContent,
		}
	}
	return compactionItem{Type: "message", Role: string(m.Role), Content: m.Content}
}

func fromCompactionItem(item compactionItem) types.Message {
	if item.Type == "compaction" {
		return types.Message{
			ID:   uuid.NewString(),
			Role: types.RoleSystem,
			Type: types.MessageCompaction,
			Compaction: &types.CompactionMetadata{
				CompactionID:     item.CompactionID,
				EncryptedContent: item.EncryptedContent,
			},
		}
	}
	return types.Message{
		ID:      uuid.NewString(),
		Role:    types.Role(item.Role),
		Content: item.Content,
		Type:    types.MessageStandard,
	}
}

// Compact builds the compaction input from sess's current messages,
// posts it to the compaction endpoint, and on success replaces the
// session's entire message list with the returned sequence (persisted
// in the store). Any failure at any step leaves the session's store
// row and in-memory messages untouched.
func (c *Compactor) Compact(ctx context.Context, cred llm.Credential, sess *Session, model string) error {
	input := make([]compactionItem, 0, len(sess.Messages)+1)
	if anchor, err := c.checkpoints.Latest(sess.ID); err != nil {
		L_warn("session: failed to consult checkpoint before compaction, proceeding without one", "session", sess.ID, "error", err)
	} else if anchor != nil {
		input = append(input, compactionItem{Type: "checkpoint_anchor", Content: anchor.Summary})
	}
	for _, m := range sess.Messages {
		input = append(input, toCompactionItem(m))
	}

	body, err := json.Marshal(compactionRequest{Model: model, Input: input})
	if err != nil {
		return apperr.Wrap(apperr.KindParseFailure, "encode compaction request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindNetworkFailure, "build compaction request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetworkFailure, "compaction request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindNetworkFailure, "read compaction response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.New(apperr.KindAuthenticationExpired, "provider rejected credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.New(apperr.KindProviderError, fmt.Sprintf("compaction endpoint returned %d", resp.StatusCode))
	}

	var parsed compactionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return apperr.Wrap(apperr.KindParseFailure, "parse compaction response", err)
	}

	newRows := make([]*store.Message, 0, len(parsed.Output))
	newMessages := make([]types.Message, 0, len(parsed.Output))
	for _, item := range parsed.Output {
		msg := fromCompactionItem(item)
		row, err := toStoreMessage(sess.ID, msg)
		if err != nil {
			return err
		}
		newRows = append(newRows, row)
		newMessages = append(newMessages, msg)
	}

	if err := c.store.ReplaceMessages(sess.ID, newRows); err != nil {
		return err
	}

	sess.Messages = newMessages
	L_info("session: compacted", "session", sess.ID, "resultMessages", len(newMessages))

	if err := c.checkpoints.Record(sess.ID, Checkpoint{
		Summary:        fmt.Sprintf("compacted to %d messages", len(newMessages)),
		MessageCountAt: len(newMessages),
	}); err != nil {
		L_warn("session: failed to record checkpoint after compaction", "session", sess.ID, "error", err)
	}
	return nil
}
