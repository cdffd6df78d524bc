package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown llm provider")

	// ErrMissingAPIKey is returned when a provider needs a key that is not configured.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrEmptyResponse is returned when the provider answers with no candidates.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolChoice constrains whether the model must, may or must not call tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// Schema is a JSON schema document.
type Schema map[string]interface{}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one entry of the conversation history.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and ToolName identify the call a tool message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	// ImagePNG is an optional base64 encoded PNG attached to the message.
	ImagePNG string `json:"image_png,omitempty"`
	// Reasoning carries an assistant turn's signed thinking blocks so they
	// can be replayed to providers that require them.
	Reasoning []ReasoningBlock `json:"reasoning,omitempty"`
}

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// OutputSchema declares a structured output contract for the final answer.
type OutputSchema struct {
	Name   string
	Schema Schema
}

// Settings are the decoding settings for one request.
type Settings struct {
	Temperature     *float64
	MaxTokens       int
	ToolChoice      ToolChoice
	ReasoningEffort string
	// ReasoningSummary asks for the model's reasoning: "auto", "concise" or
	// "detailed". See thinkingBudget and reasoningEffort.
	ReasoningSummary string
	// Truncation is the history policy applied by TrimHistory.
	Truncation string
}

// Request is a single model call.
type Request struct {
	Model        string
	System       string
	Messages     []Message
	Tools        []ToolDefinition
	Settings     Settings
	OutputSchema *OutputSchema
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the model's answer to one Request.
type Response struct {
	Text      string
	Reasoning *string
	// ReasoningBlocks are the individual signed thinking blocks behind
	// Reasoning, when the provider returns them.
	ReasoningBlocks []ReasoningBlock
	ToolCalls       []ToolCall
	StopReason      string
	Usage           Usage
}

// Client is the decision-engine collaborator. Each Chat call is exactly one
// attempt; callers decide what to do with a failure.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Chat calls f(ctx, req).
func (f ClientFunc) Chat(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Config holds provider credentials. Empty keys fall back to the provider's
// conventional environment variable.
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	BedrockRegion   string
	MaxTokens       int
}

const defaultMaxTokens = 4096

// New creates the Client for provider.
func New(ctx context.Context, provider string, cfg Config) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch strings.ToLower(provider) {
	case "openai", "":
		return NewOpenAIClient(firstNonEmpty(cfg.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY")),
			firstNonEmpty(cfg.OpenAIBaseURL, os.Getenv("OPENAI_BASE_URL")), cfg.MaxTokens)
	case "anthropic":
		return NewAnthropicClient(firstNonEmpty(cfg.AnthropicAPIKey, os.Getenv("ANTHROPIC_API_KEY")), cfg.MaxTokens)
	case "bedrock":
		return NewBedrockClient(ctx, cfg.BedrockRegion, cfg.MaxTokens)
	case "gemini":
		return NewGeminiClient(ctx, firstNonEmpty(cfg.GeminiAPIKey, os.Getenv("GEMINI_API_KEY")), cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func maxTokens(s Settings, fallback int) int {
	if s.MaxTokens > 0 {
		return s.MaxTokens
	}
	return fallback
}

// systemPrompt returns the instructions with the output contract appended.
// Providers without native structured output rely on this alone.
func systemPrompt(req Request) string {
	if req.OutputSchema == nil {
		return req.System
	}
	schema, err := json.MarshalIndent(req.OutputSchema.Schema, "", "  ")
	if err != nil {
		return req.System
	}
	var b strings.Builder
	b.WriteString(req.System)
	if req.System != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object named ")
	b.WriteString(req.OutputSchema.Name)
	b.WriteString(" that matches this JSON schema, and nothing else:\n")
	b.Write(schema)
	return b.String()
}

// argsMap decodes tool call arguments into a map; empty input yields an empty map.
func argsMap(raw json.RawMessage) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func stringPtr(s string) *string {
	return &s
}
