package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxTurns bounds the request/response cycles of one run.
const DefaultMaxTurns = 20

// ErrNilAgent is returned when a run is started without an agent.
var ErrNilAgent = errors.New("agent is nil")

// RunResult is the outcome of a finished run.
type RunResult struct {
	AgentName string
	// FinalOutput is the last message output of the run, nil if there was none.
	FinalOutput    *string
	Turns          int
	TurnsExhausted bool
	Messages       []llm.Message
	Usage          llm.Usage
}

// RunOption configures one run.
type RunOption func(*runOptions)

type runOptions struct {
	maxTurns int
}

// WithMaxTurns overrides the turn budget. Values below one are ignored.
func WithMaxTurns(n int) RunOption {
	return func(o *runOptions) {
		if n > 0 {
			o.maxTurns = n
		}
	}
}

// Runner drives agents against a decision engine.
type Runner struct {
	client   llm.Client
	logger   logger.Logger
	maxTurns int
}

// NewRunner creates a runner. maxTurns <= 0 selects DefaultMaxTurns.
func NewRunner(client llm.Client, log logger.Logger, maxTurns int) *Runner {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Runner{
		client:   client,
		logger:   log,
		maxTurns: maxTurns,
	}
}

// StreamedRun is a run in progress. Events must be drained before Result
// returns.
type StreamedRun struct {
	events chan RunEvent
	done   chan struct{}
	result *RunResult
	err    error
}

// Events returns the run's event stream. It is closed when the run ends.
func (s *StreamedRun) Events() <-chan RunEvent {
	return s.events
}

// Result blocks until the run ends.
func (s *StreamedRun) Result() (*RunResult, error) {
	<-s.done
	return s.result, s.err
}

// Run executes the agent to completion and returns its result.
func (r *Runner) Run(ctx context.Context, a *Agent, input string, opts ...RunOption) (*RunResult, error) {
	run := r.RunStreamed(ctx, a, input, opts...)
	for range run.Events() {
	}
	return run.Result()
}

// RunStreamed starts the agent and returns immediately; events are produced
// as the run progresses.
func (r *Runner) RunStreamed(ctx context.Context, a *Agent, input string, opts ...RunOption) *StreamedRun {
	o := runOptions{maxTurns: r.maxTurns}
	for _, opt := range opts {
		opt(&o)
	}

	run := &StreamedRun{
		events: make(chan RunEvent),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(run.done)
		defer close(run.events)
		run.result, run.err = r.loop(ctx, a, input, o, run.events)
	}()

	return run
}

func (r *Runner) loop(ctx context.Context, a *Agent, input string, o runOptions, events chan<- RunEvent) (*RunResult, error) {
	if a == nil {
		return nil, ErrNilAgent
	}

	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "agent.run "+a.Name, telemetry.AttrAgentName.String(a.Name))
	defer span.End()

	result := &RunResult{
		AgentName: a.Name,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: input}},
	}

	finish := func(outcome string, err error) (*RunResult, error) {
		telemetry.RecordRun(a.Name, outcome, time.Since(started).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Error(ctx, "agent run failed", map[string]interface{}{
				"agent": a.Name,
				"turns": result.Turns,
				"error": err.Error(),
			})
			return result, err
		}
		r.logger.Info(ctx, "agent run finished", map[string]interface{}{
			"agent":     a.Name,
			"turns":     result.Turns,
			"exhausted": result.TurnsExhausted,
		})
		return result, nil
	}

	emit := func(ev RunEvent) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := emit(AgentUpdatedEvent{AgentName: a.Name}); err != nil {
		return finish(telemetry.OutcomeError, err)
	}

	toolUsed := false
	for result.Turns < o.maxTurns {
		result.Turns++
		telemetry.RecordTurn(a.Name)

		req := a.request(result.Messages)
		if toolUsed && req.Settings.ToolChoice == llm.ToolChoiceRequired {
			// required only forces the first tool use; afterwards the model may finish.
			req.Settings.ToolChoice = llm.ToolChoiceAuto
		}
		resp, err := r.client.Chat(ctx, req)
		if err != nil {
			return finish(telemetry.OutcomeError, fmt.Errorf("agent %s turn %d: %w", a.Name, result.Turns, err))
		}
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens

		if err := emit(RawResponseEvent{Response: resp}); err != nil {
			return finish(telemetry.OutcomeError, err)
		}

		if resp.Reasoning != nil {
			item := ReasoningItem{AgentName: a.Name}
			if *resp.Reasoning != "" {
				item.Summary = resp.Reasoning
			}
			if err := emit(item); err != nil {
				return finish(telemetry.OutcomeError, err)
			}
		}

		result.Messages = append(result.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
			Reasoning: resp.ReasoningBlocks,
		})

		if resp.Text != "" {
			text := resp.Text
			result.FinalOutput = &text
			if err := emit(MessageOutputItem{AgentName: a.Name, Text: text}); err != nil {
				return finish(telemetry.OutcomeError, err)
			}
		}

		if len(resp.ToolCalls) == 0 {
			return finish(telemetry.OutcomeSuccess, nil)
		}

		for _, call := range resp.ToolCalls {
			msg, err := r.callTool(ctx, a, call, emit)
			if err != nil {
				return finish(telemetry.OutcomeError, err)
			}
			result.Messages = append(result.Messages, msg)
		}
		toolUsed = true
	}

	result.TurnsExhausted = true
	r.logger.Warn(ctx, "agent turn budget exhausted", map[string]interface{}{
		"agent":     a.Name,
		"max_turns": o.maxTurns,
	})
	return finish(telemetry.OutcomeExhausted, nil)
}

// callTool executes one tool call. Tool failures are reported to the model as
// output; only a cancelled stream aborts the run.
func (r *Runner) callTool(ctx context.Context, a *Agent, call llm.ToolCall, emit func(RunEvent) error) (llm.Message, error) {
	msg := llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, ToolName: call.Name}

	t := a.tool(call.Name)
	kind := ToolKindFunction
	if t != nil {
		kind = t.Kind()
	}
	if err := emit(ToolCallItem{
		AgentName: a.Name,
		CallID:    call.ID,
		Name:      call.Name,
		Kind:      kind,
		Arguments: call.Arguments,
	}); err != nil {
		return msg, err
	}

	switch {
	case t == nil:
		msg.Content = fmt.Sprintf("error: unknown tool %q", call.Name)
	default:
		res, err := t.Call(ctx, call.Arguments)
		if err != nil {
			r.logger.Warn(ctx, "tool call failed", map[string]interface{}{
				"agent": a.Name,
				"tool":  call.Name,
				"error": err.Error(),
			})
			msg.Content = "error: " + err.Error()
		} else {
			msg.Content = res.Content
			msg.ImagePNG = res.ImagePNG
		}
	}

	if err := emit(ToolOutputItem{
		AgentName: a.Name,
		CallID:    call.ID,
		Name:      call.Name,
		Output:    msg.Content,
		ImagePNG:  msg.ImagePNG,
	}); err != nil {
		return msg, err
	}
	return msg, nil
}
