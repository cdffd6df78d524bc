package pentest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/computer"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
	"go.opentelemetry.io/otel/codes"
)

const (
	AgentName       = "Simple SQL Injection Tester"
	DefaultModel    = "gpt-4.1"
	DefaultInput    = "Start the SQL injection test on the current page."
	DefaultMaxTurns = agent.DefaultMaxTurns
)

const instructions = `
You are a basic penetration tester agent focusing on SQL Injection.
Drop the comments from the database under an image by injecting the drop command.
Observe whether the attempt was successful.
You will use the 'computer' tool to interact with a web browser provided to you.
At the end, output the detailed summary of your results, whether the injection was correct and what you did.
`

// ErrSetupFailed wraps a failure to open the browser session.
var ErrSetupFailed = errors.New("pentest setup failed")

// NewAgent binds the SQL injection tester to the computer tool.
func NewAgent(model string, tool agent.Tool) *agent.Agent {
	if model == "" {
		model = DefaultModel
	}
	return &agent.Agent{
		Name:         AgentName,
		Instructions: instructions,
		Model:        model,
		Tools:        []agent.Tool{tool},
		Settings: llm.Settings{
			ToolChoice:       llm.ToolChoiceRequired,
			ReasoningSummary: llm.ReasoningSummaryConcise,
			Truncation:       llm.TruncationAuto,
		},
	}
}

// Config configures a Tester.
type Config struct {
	Session  computer.Config
	Model    string
	Input    string
	MaxTurns int
}

// Report is the outcome of one pentest run.
type Report struct {
	// Summary is the agent's last message output, nil when it produced none.
	Summary        *string
	FinalURL       string
	Screenshot     string
	Turns          int
	TurnsExhausted bool
	Duration       time.Duration
}

// SummaryText returns the summary, or "" when the run produced none.
func (r *Report) SummaryText() string {
	if r == nil || r.Summary == nil {
		return ""
	}
	return *r.Summary
}

// Tester runs the SQL injection agent against one target.
type Tester struct {
	cfg    Config
	runner *agent.Runner
	start  computer.StartFunc
	store  storage.ArtifactStore
	logger logger.Logger
}

// NewTester creates a Tester. Each Run opens its own browser session.
func NewTester(cfg Config, runner *agent.Runner, start computer.StartFunc, store storage.ArtifactStore, log logger.Logger) *Tester {
	if cfg.Input == "" {
		cfg.Input = DefaultInput
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &Tester{
		cfg:    cfg,
		runner: runner,
		start:  start,
		store:  store,
		logger: log,
	}
}

// Run opens a session on the target, streams the agent run, then reloads
// the page and captures the final state before teardown.
func (t *Tester) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "pentest", telemetry.AttrTargetURL.String(t.cfg.Session.TargetURL))
	defer span.End()

	log := t.logger.WithField("target_url", t.cfg.Session.TargetURL)
	session := computer.NewSession(t.cfg.Session, t.start, t.store, t.logger)
	if err := session.Enter(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrSetupFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "pentest setup failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	defer session.Exit(context.WithoutCancel(ctx))

	a := NewAgent(t.cfg.Model, computer.NewTool(session))
	run := t.runner.RunStreamed(ctx, a, t.cfg.Input, agent.WithMaxTurns(t.cfg.MaxTurns))

	summary, err := agent.Consume(ctx, run, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pentest run: %w", err)
	}

	report := &Report{Summary: summary}
	if res, _ := run.Result(); res != nil {
		report.Turns = res.Turns
		report.TurnsExhausted = res.TurnsExhausted
	}

	if err := session.Reload(ctx); err != nil {
		log.Warn(ctx, "reload after run failed", map[string]interface{}{"error": err.Error()})
	}
	report.Screenshot = session.Screenshot(ctx)
	if u, err := session.URL(ctx); err == nil {
		report.FinalURL = u
	} else {
		log.Warn(ctx, "could not read final url", map[string]interface{}{"error": err.Error()})
	}
	report.Duration = time.Since(started)

	log.Info(ctx, "pentest finished", map[string]interface{}{
		"turns":       report.Turns,
		"exhausted":   report.TurnsExhausted,
		"has_summary": report.Summary != nil,
		"final_url":   report.FinalURL,
	})
	return report, nil
}
