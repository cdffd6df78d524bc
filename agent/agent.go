package agent

import (
	"context"
	"encoding/json"

	"github.com/hairizuanbinnoorazman/ohacker/llm"
)

// ToolKind separates built-in device actions from named function tools.
type ToolKind int

const (
	ToolKindFunction ToolKind = iota
	ToolKindComputer
)

func (k ToolKind) String() string {
	if k == ToolKindComputer {
		return "computer"
	}
	return "function"
}

// ToolResult is what a tool hands back to the model.
type ToolResult struct {
	Content string `json:"content"`
	// ImagePNG is an optional base64 encoded screenshot.
	ImagePNG string `json:"-"`
}

// Tool is a capability the model may invoke.
type Tool interface {
	Definition() llm.ToolDefinition
	Kind() ToolKind
	Call(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

// OutputType declares a structured final output.
type OutputType struct {
	Name   string
	Schema llm.Schema
}

// Agent binds instructions, a model and a tool set.
type Agent struct {
	Name         string
	Instructions string
	Model        string
	Settings     llm.Settings
	Tools        []Tool
	Output       *OutputType
}

func (a *Agent) tool(name string) Tool {
	for _, t := range a.Tools {
		if t.Definition().Name == name {
			return t
		}
	}
	return nil
}

func (a *Agent) request(messages []llm.Message) llm.Request {
	req := llm.Request{
		Model:    a.Model,
		System:   a.Instructions,
		Messages: llm.TrimHistory(messages, a.Settings.Truncation),
		Settings: a.Settings,
	}
	for _, t := range a.Tools {
		req.Tools = append(req.Tools, t.Definition())
	}
	if a.Output != nil {
		req.OutputSchema = &llm.OutputSchema{Name: a.Output.Name, Schema: a.Output.Schema}
	}
	return req
}

// FunctionTool is a Tool backed by a Go function.
type FunctionTool struct {
	Name        string
	Description string
	Parameters  llm.Schema
	Handler     func(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

func (f *FunctionTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: f.Name, Description: f.Description, Parameters: f.Parameters}
}

func (f *FunctionTool) Kind() ToolKind { return ToolKindFunction }

func (f *FunctionTool) Call(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return f.Handler(ctx, args)
}
