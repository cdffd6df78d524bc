package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/computer"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/pentest"
	"github.com/hairizuanbinnoorazman/ohacker/pipeline"
	"github.com/hairizuanbinnoorazman/ohacker/research"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
	"github.com/hairizuanbinnoorazman/ohacker/websearch"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *Config
	log      logger.Logger
	client   llm.Client
	runner   *agent.Runner
	store    storage.ArtifactStore
	shutdown telemetry.ShutdownFunc
}

// newApp loads configuration and wires logging, tracing, the decision
// engine and artifact storage. Callers must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		Exporter:    cfg.Telemetry.Exporter,
		Writer:      os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	client, err := llm.New(ctx, cfg.Agent.Provider, llm.Config{
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.LLM.OpenAIBaseURL,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
		GeminiAPIKey:    cfg.LLM.GeminiAPIKey,
		BedrockRegion:   cfg.LLM.BedrockRegion,
		MaxTokens:       cfg.LLM.MaxTokens,
	})
	if err != nil {
		shutdown(ctx)
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Agent.Provider, err)
	}

	store, err := storage.New(storage.Config{
		Type:            cfg.Storage.Type,
		BaseDir:         cfg.Storage.BaseDir,
		S3Bucket:        cfg.Storage.S3Bucket,
		S3Region:        cfg.Storage.S3Region,
		S3PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		shutdown(ctx)
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	log.Debug(ctx, "application initialized", map[string]interface{}{
		"provider": cfg.Agent.Provider,
		"storage":  cfg.Storage.Type,
		"version":  Version,
	})

	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		runner:   agent.NewRunner(client, log, cfg.Agent.MaxTurns),
		store:    store,
		shutdown: shutdown,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if c, ok := a.client.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.log.Warn(ctx, "failed to close llm client", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn(ctx, "failed to flush telemetry", map[string]interface{}{"error": err.Error()})
	}
}

// researchManager wires the planner, search and writer agents.
func (a *app) researchManager() *research.Manager {
	search := websearch.New(websearch.Config{
		Endpoint:   a.cfg.Search.Endpoint,
		MaxResults: a.cfg.Search.MaxResults,
		MaxChars:   a.cfg.Search.MaxChars,
		Timeout:    a.cfg.Search.Timeout,
	})

	planner := &research.AgentPlanner{Runner: a.runner, Agent: research.NewPlannerAgent(a.cfg.Agent.PlannerModel)}
	searcher := &research.AgentSearcher{
		Runner: a.runner,
		Agent:  research.NewSearchAgent(a.cfg.Agent.SearchModel, search.SearchTool(), search.FetchTool()),
	}
	writer := &research.AgentWriter{Runner: a.runner, Agent: research.NewWriterAgent(a.cfg.Agent.WriterModel)}

	return research.NewManager(planner, searcher, writer, a.store, a.cfg.Research.ReportPath, a.log)
}

// tester builds a pentest runner for targetURL, falling back to the
// configured target.
func (a *app) tester(targetURL string) *pentest.Tester {
	if targetURL == "" {
		targetURL = a.cfg.Target.URL
	}
	return pentest.NewTester(pentest.Config{
		Session: computer.Config{
			TargetURL:         targetURL,
			Headless:          a.cfg.Target.Headless,
			NavigationTimeout: a.cfg.Target.NavigationTimeout,
			ScreenshotName:    a.cfg.Target.ScreenshotPath,
		},
		Model:    a.cfg.Agent.ComputerModel,
		MaxTurns: a.cfg.Agent.MaxTurns,
	}, a.runner, computer.StartRod, a.store, a.log)
}

func (a *app) pentesterFactory() pipeline.PentesterFactory {
	return func(targetURL string) pipeline.Pentester {
		return a.tester(targetURL)
	}
}
