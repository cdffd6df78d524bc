package agent

import (
	"encoding/json"

	"github.com/hairizuanbinnoorazman/ohacker/llm"
)

// RunEvent is one unit of a run's observable execution stream. The set of
// implementations is closed.
type RunEvent interface {
	isRunEvent()
}

// RawResponseEvent carries the transport-level response of one turn.
type RawResponseEvent struct {
	Response *llm.Response
}

// AgentUpdatedEvent announces the agent now in control of the run.
type AgentUpdatedEvent struct {
	AgentName string
}

// ReasoningItem is a reasoning step. Summary is nil when the model gave none.
type ReasoningItem struct {
	AgentName string
	Summary   *string
}

// MessageOutputItem is a textual message from the model.
type MessageOutputItem struct {
	AgentName string
	Text      string
}

// ToolCallItem is a tool invocation requested by the model.
type ToolCallItem struct {
	AgentName string
	CallID    string
	Name      string
	Kind      ToolKind
	Arguments json.RawMessage
}

// Action returns the device action named in a computer call's arguments.
func (t ToolCallItem) Action() string {
	var args struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(t.Arguments, &args); err != nil {
		return ""
	}
	return args.Action
}

// ToolOutputItem is the result of a tool invocation.
type ToolOutputItem struct {
	AgentName string
	CallID    string
	Name      string
	Output    string
	ImagePNG  string
}

func (RawResponseEvent) isRunEvent()  {}
func (AgentUpdatedEvent) isRunEvent() {}
func (ReasoningItem) isRunEvent()     {}
func (MessageOutputItem) isRunEvent() {}
func (ToolCallItem) isRunEvent()      {}
func (ToolOutputItem) isRunEvent()    {}
