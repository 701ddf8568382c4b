package session

import (
	"encoding/json"

	"github.com/termai-dev/termai/internal/apperr"
	"github.com/termai-dev/termai/internal/types"
)

func encodeCompactionMetadata(meta *types.CompactionMetadata) (string, error) {
	b, err := json.Marshal(meta)
	if err != nil {
		return "", apperr.Wrap(apperr.KindParseFailure, "encode compaction metadata", err)
	}
	return string(b), nil
}

func decodeCompactionMetadata(blob string) (*types.CompactionMetadata, error) {
	var meta types.CompactionMetadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return nil, apperr.Wrap(apperr.KindParseFailure, "decode compaction metadata", err)
	}
	return &meta, nil
}
