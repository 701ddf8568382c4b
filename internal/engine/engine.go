// Package engine wires the Session Manager, provider Registry, and
// Context Analyzer into the single operation the outer layers call: a
// turn from a user message plus a working directory to a sequence of
// assistant messages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	projcontext "github.com/termai-dev/termai/internal/context"

	"github.com/termai-dev/termai/internal/config"
	. "github.com/termai-dev/termai/internal/logging"
	"github.com/termai-dev/termai/internal/paths"
	"github.com/termai-dev/termai/internal/session"
	"github.com/termai-dev/termai/internal/store"
	"github.com/termai-dev/termai/internal/types"
)

// chunkDropThreshold is the fraction of a project's scored files a Skip
// overflow policy would have to drop before the engine switches from a
// single optimizer pass to the multi-session Chunker.
const chunkDropThreshold = 0.3

// Engine owns the control flow described by the system overview:
// resolve or create a session, optionally assemble project context,
// and dispatch the turn through the Session Manager.
type Engine struct {
	sessions     *session.Manager
	cache        *projcontext.Cache
	provider     string
	systemPrompt string
}

// New wires an Engine over an already-constructed Session Manager, an
// optional context cache (nil disables cross-run caching but leaves
// analysis and optimization working), the default provider id, and the
// base system prompt every turn starts from.
func New(sessions *session.Manager, cache *projcontext.Cache, provider, systemPrompt string) *Engine {
	return &Engine{sessions: sessions, cache: cache, provider: provider, systemPrompt: systemPrompt}
}

// Turn is the engine's sole entrypoint: a user message plus a working
// directory in, a sequence of assistant messages out. workDir may be
// empty, in which case no project context is assembled.
func (e *Engine) Turn(ctx context.Context, workDir, userText string) ([]types.Message, error) {
	sess, err := e.currentOrNewSession()
	if err != nil {
		return nil, err
	}

	systemPrompt := e.systemPrompt
	if workDir != "" {
		block, err := e.assembleContext(ctx, workDir)
		if err != nil {
			L_warn("engine: context assembly failed, proceeding without project context", "workDir", workDir, "error", err)
		} else if block != "" {
			systemPrompt = strings.TrimSpace(systemPrompt + "\n\n" + block)
		}
	}

	userMsg := types.Message{Role: types.RoleUser, Content: userText, Type: types.MessageStandard}
	return e.sessions.SendMessage(ctx, sess, e.provider, systemPrompt, userMsg, nil)
}

// currentOrNewSession returns the store's current session, or a fresh
// temporary one (promoted to a real row on its first append) when none
// exists yet.
func (e *Engine) currentOrNewSession() (*session.Session, error) {
	sess, err := e.sessions.FetchCurrentSession()
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, store.ErrNoCurrentSession) {
		return session.NewTemporary("default"), nil
	}
	return nil, err
}

// assembleContext analyzes workDir and renders either a single context
// block (the common case) or, when a Skip overflow policy would drop a
// material fraction of the project, a chunked summary assembled across
// several ephemeral sub-session turns.
func (e *Engine) assembleContext(ctx context.Context, workDir string) (string, error) {
	projCfg, err := config.LoadProjectConfig(paths.ProjectConfigPath(workDir))
	if err != nil {
		return "", err
	}

	analyzer := projcontext.NewAnalyzer(e.cache)
	_, scores, err := analyzer.Analyze(workDir, projCfg.Context)
	if err != nil {
		return "", err
	}
	if len(scores) == 0 {
		return "", nil
	}

	optimizer := projcontext.NewOptimizer(workDir)
	admitted, err := optimizer.OptimizeWithConfig(scores, projCfg.Context)
	if err != nil {
		return "", err
	}

	if projCfg.Context.Overflow == "skip" && dropsMaterialFraction(scores, admitted) {
		return e.assembleViaChunks(ctx, optimizer, scores, projCfg)
	}

	return renderFiles(admitted), nil
}

// assembleViaChunks partitions scores into typed chunks and runs each
// through its own ephemeral, never-listed sub-session, asking the
// provider for a short summary whose text folds into a GlobalContext
// accumulator shared across chunks. The rendered accumulator becomes
// the calling turn's context block.
func (e *Engine) assembleViaChunks(ctx context.Context, optimizer *projcontext.Optimizer, scores []projcontext.ContextScore, projCfg config.ProjectConfig) (string, error) {
	chunker := projcontext.NewChunker(optimizer)
	chunks, err := chunker.Partition(scores, projCfg.Context.ChunkTokenBudget)
	if err != nil {
		return "", err
	}

	global := projcontext.NewGlobalContext()
	for _, chunk := range chunks {
		sub := session.NewTemporary(fmt.Sprintf("context-chunk-%s", chunk.Type))
		chunkSystemPrompt := strings.TrimSpace(global.String() + "\n\n" + renderFiles(chunk.Files))
		summarize := types.Message{
			Role:    types.RoleUser,
			Content: fmt.Sprintf("Summarize the %q chunk of this project in two or three sentences, for use as context in later chunks.", chunk.Type),
			Type:    types.MessageStandard,
		}

		reply, err := e.sessions.SendMessage(ctx, sub, e.provider, chunkSystemPrompt, summarize, nil)
		if err != nil {
			L_warn("engine: chunk summarization failed, skipping chunk", "chunk", chunk.Type, "error", err)
			continue
		}
		for _, m := range reply {
			global.Append(m.Content)
		}
	}

	return global.String(), nil
}

// dropsMaterialFraction reports whether the files the Optimizer left
// out of admitted amount to more than chunkDropThreshold of scores.
func dropsMaterialFraction(scores []projcontext.ContextScore, admitted []projcontext.AdmittedFile) bool {
	if len(scores) == 0 {
		return false
	}
	admittedSet := make(map[string]bool, len(admitted))
	for _, a := range admitted {
		admittedSet[a.Path] = true
	}
	dropped := 0
	for _, sc := range scores {
		if !admittedSet[sc.Path] {
			dropped++
		}
	}
	return float64(dropped)/float64(len(scores)) > chunkDropThreshold
}

// renderFiles formats admitted files as a markdown context block, empty
// when there is nothing to show.
func renderFiles(files []projcontext.AdmittedFile) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Project context\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n\n```\n%s\n```\n\n", f.Path, f.Content)
	}
	return strings.TrimSpace(b.String())
}
