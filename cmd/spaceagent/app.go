package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jllopis/spaceagent/pkg/config"
	"github.com/jllopis/spaceagent/pkg/knowledge"
	"github.com/jllopis/spaceagent/pkg/llm"
	"github.com/jllopis/spaceagent/pkg/llm/anthropic"
	agentmcp "github.com/jllopis/spaceagent/pkg/mcp"
	"github.com/jllopis/spaceagent/pkg/orchestrator"
	"github.com/jllopis/spaceagent/pkg/planner"
	"github.com/jllopis/spaceagent/pkg/telemetry"
	"github.com/jllopis/spaceagent/pkg/tool"
	"github.com/jllopis/spaceagent/pkg/tools"
)

const defaultOllamaURL = "http://localhost:11434"

const mockAnswer = `{"type": "answer", "content": {"message": "This is a mock response.", "reason": "mock provider"}}`

// app holds the components shared by the commands. Close releases them in
// reverse order of creation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *telemetry.ExecutionMetrics
	knowledge  *knowledge.Base
	dispatcher *tool.Dispatcher
	audit      planner.AuditStore
	closers    []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	metrics, err := telemetry.NewExecutionMetrics()
	if err != nil {
		return nil, err
	}
	a.metrics = metrics

	toolCfg := tools.Config{MaxTopK: cfg.Knowledge.MaxTopK}
	if cfg.Knowledge.Enabled {
		kb, err := a.openKnowledge(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		toolCfg.Knowledge = kb
	}

	groups := tools.Groups(toolCfg)
	remote, err := a.remoteGroups(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	reg, err := tool.NewRegistry(append(groups, remote...)...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = tool.NewDispatcher(reg.Catalog().Without(cfg.Tools.Disabled...), reg,
		tool.WithTimeout(cfg.Tools.Timeout),
		tool.WithLogger(logger))

	if cfg.Audit.Enabled {
		if err := a.openAudit(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openKnowledge(ctx context.Context) (*knowledge.Base, error) {
	kc := a.cfg.Knowledge
	var store knowledge.Store
	switch strings.ToLower(kc.Store) {
	case "", "memory":
		store = knowledge.NewMemoryStore(kc.CachePath)
	case "qdrant":
		qs, err := knowledge.DialQdrant(kc.QdrantAddr, kc.Collection)
		if err != nil {
			return nil, err
		}
		store = qs
	default:
		return nil, fmt.Errorf("unknown knowledge store %q", kc.Store)
	}
	embedder := knowledge.NewOllamaEmbedder(kc.EmbedderBaseURL, kc.EmbedderModel, nil)
	kb := knowledge.New(store, embedder,
		knowledge.WithWorkers(kc.Workers),
		knowledge.WithLogger(a.logger),
		knowledge.WithName(kc.Collection))
	if err := kb.Open(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	a.knowledge = kb
	a.closers = append(a.closers, kb.Close)
	return kb, nil
}

func (a *app) remoteGroups(ctx context.Context) ([]*tool.Group, error) {
	names := make([]string, 0, len(a.cfg.MCP.Servers))
	for name := range a.cfg.MCP.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]*tool.Group, 0, len(names))
	for _, name := range names {
		sc := a.cfg.MCP.Servers[name]
		client, err := agentmcp.NewStdioClient(ctx, sc.Command, sc.Args)
		if err != nil {
			return nil, fmt.Errorf("start mcp server %q: %w", name, err)
		}
		a.closers = append(a.closers, client.Close)
		g, err := agentmcp.RemoteGroup(ctx, name, client)
		if err != nil {
			return nil, err
		}
		a.logger.InfoContext(ctx, "mcp.remote.registered", "namespace", name, "tools", len(g.Descriptors()))
		groups = append(groups, g)
	}
	return groups, nil
}

func (a *app) openAudit() error {
	switch strings.ToLower(a.cfg.Audit.Driver) {
	case "", "memory":
		a.audit = planner.NewMemoryAuditStore()
	case "sqlite":
		store, err := planner.OpenSQLiteAuditStore(a.cfg.Audit.DSN)
		if err != nil {
			return err
		}
		a.audit = store
		a.closers = append(a.closers, store.Close)
	default:
		return fmt.Errorf("unknown audit driver %q", a.cfg.Audit.Driver)
	}
	return nil
}

func (a *app) executor() *planner.Executor {
	opts := []planner.Option{
		planner.WithLogger(a.logger),
		planner.WithMetrics(a.metrics),
	}
	if a.audit != nil {
		opts = append(opts, planner.WithAuditStore(a.audit))
	}
	return planner.NewExecutor(a.dispatcher, opts...)
}

func (a *app) orchestrator(provider llm.Provider) *orchestrator.Orchestrator {
	lc := a.cfg.LLM
	opts := []orchestrator.Option{
		orchestrator.WithModel(lc.Model),
		orchestrator.WithTemperature(lc.Temperature),
		orchestrator.WithMaxTokens(lc.MaxTokens),
		orchestrator.WithAgentName(lc.AgentName),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithMetrics(a.metrics),
	}
	if lc.AnswerModel != "" {
		opts = append(opts, orchestrator.WithSynthesizer(orchestrator.NewTextSynthesizer(provider, lc.AnswerModel)))
	}
	return orchestrator.New(provider, a.dispatcher.Catalog(), a.executor(), opts...)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func newProvider(cfg config.LLMConfig, logger *slog.Logger) (llm.Provider, error) {
	var (
		p    llm.Provider
		name = strings.ToLower(cfg.Provider)
	)
	switch name {
	case "", "ollama":
		name = "ollama"
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		p = llm.NewOllama(baseURL)
	case "anthropic":
		p = anthropic.New(
			anthropic.WithModel(cfg.Model),
			anthropic.WithMaxTokens(int64(cfg.MaxTokens)),
			anthropic.WithBaseURL(cfg.BaseURL),
			anthropic.WithAPIKey(cfg.APIKey),
		)
	case "mock":
		return &llm.MockProvider{Response: mockAnswer}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
	if cfg.Retries > 0 {
		p = llm.NewRetryingProvider(p, cfg.Retries+1, logger)
	}
	return llm.NewTracedProvider(p, name), nil
}
