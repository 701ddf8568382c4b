// Package tokens provides token estimation utilities using tiktoken. The
// Token Optimizer measures budgets with it rather than a character-count
// heuristic; the compaction threshold counts characters instead.
package tokens

import (
	"sync"

	. "github.com/termai-dev/termai/internal/logging"
	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for text using a tiktoken encoding.
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// DefaultEncoding is cl100k_base, a reasonable stand-in across chat models.
const DefaultEncoding = "cl100k_base"

var (
	globalEstimator     *Estimator
	globalEstimatorOnce sync.Once
)

// Get returns the global token estimator (singleton).
func Get() *Estimator {
	globalEstimatorOnce.Do(func() {
		var err error
		globalEstimator, err = New()
		if err != nil {
			L_warn("tokens: failed to create estimator, using fallback", "error", err)
			globalEstimator = &Estimator{} // fallback to char-based estimation
		}
	})
	return globalEstimator
}

// New creates a new token estimator.
func New() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Estimator{encoding: enc}, nil
}

// Count returns the token count for a string.
// Falls back to chars/4 if tiktoken is unavailable.
func (e *Estimator) Count(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tok := e.encoding.Encode(text, nil, nil)
	return len(tok)
}

// CountWithOverhead returns the token count plus a fixed per-message
// overhead (role framing, separators) that the raw text doesn't carry.
func (e *Estimator) CountWithOverhead(text string, overhead int) int {
	return e.Count(text) + overhead
}

// Estimate is a convenience function using the global estimator.
func Estimate(text string) int {
	return Get().Count(text)
}

// SafetyMargin accounts for tokenizer inaccuracies across different
// models: cl100k_base may undercount tokens for non-OpenAI encodings.
const SafetyMargin = 1.2

// CapMaxTokens calculates a safe max_tokens value that won't exceed the
// context window, applying SafetyMargin to estimatedInput and returning
// min(requestedMax, contextWindow - safeInput - buffer).
func CapMaxTokens(requestedMax, contextWindow, estimatedInput, buffer int) int {
	if contextWindow <= 0 {
		return requestedMax
	}

	safeInput := int(float64(estimatedInput) * SafetyMargin)
	available := contextWindow - safeInput - buffer
	if available < 100 {
		available = 100
	}

	if requestedMax > 0 && requestedMax < available {
		return requestedMax
	}
	return available
}
