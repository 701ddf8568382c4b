// Command termai is a thin, non-interactive single-turn driver over the
// engine: it reads a user message and an optional working directory,
// runs one Turn, and prints the resulting assistant messages. The REPL,
// key handling, and markdown rendering live outside this module.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/termai-dev/termai/internal/config"
	projcontext "github.com/termai-dev/termai/internal/context"
	"github.com/termai-dev/termai/internal/engine"
	"github.com/termai-dev/termai/internal/llm"
	. "github.com/termai-dev/termai/internal/logging"
	"github.com/termai-dev/termai/internal/oauth"
	"github.com/termai-dev/termai/internal/paths"
	"github.com/termai-dev/termai/internal/session"
	"github.com/termai-dev/termai/internal/store"
)

func main() {
	var (
		workDir         = flag.String("dir", "", "project working directory to assemble context from")
		provider        = flag.String("provider", "", "provider id to use for this turn (defaults to the configured agent provider)")
		printCheckpoint = flag.Bool("checkpoint", false, "print the current session's latest checkpoint as YAML and exit")
	)
	flag.Parse()

	if *printCheckpoint {
		if err := printLatestCheckpoint(); err != nil {
			L_error("termai: checkpoint lookup failed", "error", err)
			os.Exit(1)
		}
		return
	}

	message := strings.Join(flag.Args(), " ")
	if message == "" {
		fmt.Fprintln(os.Stderr, "usage: termai [-dir PATH] [-provider ID] <message>")
		os.Exit(2)
	}

	if err := run(*workDir, *provider, message); err != nil {
		L_error("termai: turn failed", "error", err)
		os.Exit(1)
	}
}

// printLatestCheckpoint prints the current session's latest checkpoint
// as YAML, a quick way to see what compaction will anchor to without
// opening the database directly.
func printLatestCheckpoint() error {
	storePath, err := paths.StorePath()
	if err != nil {
		return err
	}
	st, err := store.Open(store.DefaultConfig(storePath))
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(st, llm.NewRegistry(), nil, nil)
	sess, err := sessions.FetchCurrentSession()
	if err != nil {
		return err
	}

	checkpoints := session.NewCheckpointStore(st)
	cp, err := checkpoints.Latest(sess.ID)
	if err != nil {
		return err
	}
	if cp == nil {
		fmt.Println("no checkpoint recorded for the current session")
		return nil
	}

	doc, err := cp.ExportYAML()
	if err != nil {
		return err
	}
	fmt.Print(string(doc))
	return nil
}

func run(workDir, providerOverride, message string) error {
	env := config.LoadEnv()

	baseDir, err := paths.BaseDir()
	if err != nil {
		return err
	}
	if err := paths.EnsureDir(baseDir); err != nil {
		return err
	}

	storePath, err := paths.StorePath()
	if err != nil {
		return err
	}
	st, err := store.Open(store.DefaultConfig(storePath))
	if err != nil {
		return err
	}
	defer st.Close()

	cfgSvc := config.New(st)
	loaded, err := config.Load(baseDir)
	if err != nil {
		return err
	}

	registry := llm.NewRegistry()
	oauthMgrs := make(map[string]*oauth.Manager)
	for id, pc := range loaded.Config.Providers {
		dispatcher, err := llm.BuildDispatcher(id, pc.Type, pc.BaseURL, pc.Model, pc.AuthMode, pc.MaxTokens, pc.TimeoutSeconds)
		if err != nil {
			L_warn("termai: skipping provider with unbuildable dispatcher", "provider", id, "error", err)
			continue
		}
		registry.Register(dispatcher)

		if mgr, ok := oauth.NewManagerForProvider(cfgSvc, id); ok {
			oauthMgrs[id] = mgr
		}
	}

	resolver := engine.NewCredentialResolver(cfgSvc, oauthMgrs)

	compactionEndpoint := ""
	if pc, ok := loaded.Config.Providers[loaded.Config.Agent.Provider]; ok {
		compactionEndpoint = pc.BaseURL
	}
	compactor := session.NewCompactor(compactionEndpoint, nil, st)
	sessions := session.NewManager(st, registry, resolver, compactor)

	cacheDir, err := paths.CacheDir()
	if err != nil {
		return err
	}
	cache, err := projcontext.NewCache(cacheDir)
	if err != nil {
		L_warn("termai: context cache unavailable, proceeding without it", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	providerID := loaded.Config.Agent.Provider
	if providerOverride != "" {
		providerID = providerOverride
	}
	systemPrompt := loaded.Config.Agent.SystemPrompt
	if env.SystemPrompt != "" {
		systemPrompt = env.SystemPrompt
	}

	eng := engine.New(sessions, cache, providerID, systemPrompt)

	replies, err := eng.Turn(context.Background(), workDir, message)
	if err != nil {
		return err
	}
	for _, m := range replies {
		fmt.Println(m.Content)
	}
	return nil
}
