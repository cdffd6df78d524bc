package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockClient calls Anthropic models hosted on AWS Bedrock.
type BedrockClient struct {
	client    *bedrockruntime.Client
	maxTokens int
}

// NewBedrockClient creates a new BedrockClient using the default AWS credential chain.
func NewBedrockClient(ctx context.Context, region string, maxTokens int) (*BedrockClient, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(cfg),
		maxTokens: maxTokens,
	}, nil
}

// Chat invokes the model once.
func (b *BedrockClient) Chat(ctx context.Context, req Request) (*Response, error) {
	payload, err := createBedrockRequest(req, b.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	return processBedrockResponse(output.Body)
}

type bedrockContent struct {
	Type      string              `json:"type"`
	Text      string              `json:"text,omitempty"`
	Thinking  string              `json:"thinking,omitempty"`
	Signature string              `json:"signature,omitempty"`
	ID        string              `json:"id,omitempty"`
	Name      string              `json:"name,omitempty"`
	Input     json.RawMessage     `json:"input,omitempty"`
	ToolUseID string              `json:"tool_use_id,omitempty"`
	Content   string              `json:"content,omitempty"`
	Source    *bedrockImageSource `json:"source,omitempty"`
}

type bedrockImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type bedrockMessage struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

type bedrockToolChoice struct {
	Type string `json:"type"`
}

type bedrockThinking struct {
	Type         string `json:"type"`
	BudgetTokens int64  `json:"budget_tokens"`
}

type bedrockRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []bedrockMessage   `json:"messages"`
	Tools            []bedrockTool      `json:"tools,omitempty"`
	ToolChoice       *bedrockToolChoice `json:"tool_choice,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	Thinking         *bedrockThinking   `json:"thinking,omitempty"`
}

type bedrockResponse struct {
	Content    []bedrockContent `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// createBedrockRequest builds the Anthropic-on-Bedrock request body.
func createBedrockRequest(req Request, defaultMax int) ([]byte, error) {
	body := bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        maxTokens(req.Settings, defaultMax),
		System:           systemPrompt(req),
		Messages:         convertMessagesToBedrock(req.Messages),
		Temperature:      req.Settings.Temperature,
	}
	budget := thinkingBudget(req.Settings)
	if budget > 0 {
		body.Thinking = &bedrockThinking{Type: "enabled", BudgetTokens: budget}
		body.MaxTokens += int(budget)
		body.Temperature = nil
	}

	for _, t := range req.Tools {
		schema := t.Parameters
		if schema == nil {
			schema = Schema{"type": "object", "properties": map[string]interface{}{}}
		}
		body.Tools = append(body.Tools, bedrockTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	if len(body.Tools) > 0 {
		toolChoice := req.Settings.ToolChoice
		if budget > 0 && toolChoice == ToolChoiceRequired {
			toolChoice = ToolChoiceAuto
		}
		switch toolChoice {
		case ToolChoiceRequired:
			body.ToolChoice = &bedrockToolChoice{Type: "any"}
		case ToolChoiceAuto:
			body.ToolChoice = &bedrockToolChoice{Type: "auto"}
		case ToolChoiceNone:
			body.ToolChoice = &bedrockToolChoice{Type: "none"}
		}
	}

	return json.Marshal(body)
}

func convertMessagesToBedrock(messages []Message) []bedrockMessage {
	var out []bedrockMessage

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			content := []bedrockContent{{Type: "text", Text: msg.Content}}
			if msg.ImagePNG != "" {
				content = append(content, bedrockImage(msg.ImagePNG))
			}
			out = append(out, bedrockMessage{Role: "user", Content: content})
		case RoleAssistant:
			var content []bedrockContent
			for _, r := range msg.Reasoning {
				if r.Signature != "" {
					content = append(content, bedrockContent{Type: "thinking", Thinking: r.Text, Signature: r.Signature})
				}
			}
			if msg.Content != "" {
				content = append(content, bedrockContent{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 || !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				content = append(content, bedrockContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			if len(content) > 0 {
				out = append(out, bedrockMessage{Role: "assistant", Content: content})
			}
		case RoleTool:
			content := []bedrockContent{{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			}}
			if msg.ImagePNG != "" {
				content = append(content, bedrockImage(msg.ImagePNG))
			}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, content...)
				continue
			}
			out = append(out, bedrockMessage{Role: "user", Content: content})
		}
	}

	return out
}

func bedrockImage(b64 string) bedrockContent {
	return bedrockContent{
		Type: "image",
		Source: &bedrockImageSource{
			Type:      "base64",
			MediaType: "image/png",
			Data:      b64,
		},
	}
}

// processBedrockResponse converts a Bedrock response body into a Response.
func processBedrockResponse(body []byte) (*Response, error) {
	var response bedrockResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Bedrock response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("Bedrock API error: %s", response.Error.Message)
	}

	out := &Response{
		StopReason: response.StopReason,
		Usage: Usage{
			InputTokens:  response.Usage.InputTokens,
			OutputTokens: response.Usage.OutputTokens,
		},
	}

	var text, thinking strings.Builder
	for i, item := range response.Content {
		switch item.Type {
		case "text":
			text.WriteString(item.Text)
		case "thinking":
			thinking.WriteString(item.Thinking)
			out.ReasoningBlocks = append(out.ReasoningBlocks, ReasoningBlock{Text: item.Thinking, Signature: item.Signature})
		case "tool_use":
			args := item.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			id := item.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, item.Name)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: item.Name, Arguments: args})
		}
	}

	out.Text = text.String()
	if thinking.Len() > 0 {
		out.Reasoning = stringPtr(thinking.String())
	}
	return out, nil
}
