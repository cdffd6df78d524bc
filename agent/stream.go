package agent

import (
	"context"
	"unicode/utf8"

	"github.com/hairizuanbinnoorazman/ohacker/logger"
)

const (
	// outputPreviewLimit bounds logged tool output, in runes.
	outputPreviewLimit = 200

	noReasoningSummary = "(no reasoning summary)"
)

// EventSource is a run whose events can be drained.
type EventSource interface {
	Events() <-chan RunEvent
	Result() (*RunResult, error)
}

// Consume drains run, logging each event, and returns the last message
// output seen. A run that exhausted its turn budget is not an error; the
// candidate is returned as-is and may be nil.
func Consume(ctx context.Context, run EventSource, log logger.Logger) (*string, error) {
	var final *string

	for ev := range run.Events() {
		switch e := ev.(type) {
		case RawResponseEvent:
			continue
		case AgentUpdatedEvent:
			log.Info(ctx, "agent updated", map[string]interface{}{
				"agent": e.AgentName,
			})
		case ReasoningItem:
			summary := noReasoningSummary
			if e.Summary != nil {
				summary = *e.Summary
			}
			log.Info(ctx, "reasoning", map[string]interface{}{
				"agent":   e.AgentName,
				"summary": summary,
			})
		case MessageOutputItem:
			text := e.Text
			final = &text
			log.Info(ctx, "message output", map[string]interface{}{
				"agent": e.AgentName,
				"text":  text,
			})
		case ToolCallItem:
			if e.Kind == ToolKindComputer {
				log.Info(ctx, "computer action", map[string]interface{}{
					"agent":  e.AgentName,
					"action": e.Action(),
				})
				continue
			}
			log.Info(ctx, "function call", map[string]interface{}{
				"agent":     e.AgentName,
				"name":      e.Name,
				"arguments": string(e.Arguments),
			})
		case ToolOutputItem:
			log.Info(ctx, "tool output", map[string]interface{}{
				"agent":  e.AgentName,
				"name":   e.Name,
				"output": preview(e.Output, outputPreviewLimit),
			})
		}
	}

	res, err := run.Result()
	if err != nil {
		return final, err
	}
	if res != nil && res.TurnsExhausted {
		log.Warn(ctx, "run ended on turn budget", map[string]interface{}{
			"agent": res.AgentName,
			"turns": res.Turns,
		})
	}
	return final, nil
}

func preview(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
