package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is a client for the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	maxTokens int
}

// NewAnthropicClient creates a new AnthropicClient.
func NewAnthropicClient(apiKey string, maxTokens int) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:    &client,
		maxTokens: maxTokens,
	}, nil
}

// Chat sends one message request.
func (a *AnthropicClient) Chat(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.client.Messages.New(ctx, buildAnthropicParams(req, a.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to Anthropic: %w", err)
	}
	return processAnthropicResponse(resp)
}

func buildAnthropicParams(req Request, defaultMax int) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens(req.Settings, defaultMax)),
		Messages:  convertMessagesToAnthropic(req.Messages),
	}

	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}
	// Extended thinking rejects temperature and forced tool use, and its
	// budget counts against max_tokens.
	budget := thinkingBudget(req.Settings)
	if budget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
		params.MaxTokens += budget
	} else if req.Settings.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Settings.Temperature)
	}

	anthropicTools := convertToolsToAnthropic(req.Tools)
	if len(anthropicTools) > 0 {
		params.Tools = make([]anthropic.ToolUnionParam, len(anthropicTools))
		for i := range anthropicTools {
			params.Tools[i] = anthropic.ToolUnionParam{OfTool: &anthropicTools[i]}
		}
		toolChoice := req.Settings.ToolChoice
		if budget > 0 && toolChoice == ToolChoiceRequired {
			toolChoice = ToolChoiceAuto
		}
		switch toolChoice {
		case ToolChoiceRequired:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		case ToolChoiceNone:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		case ToolChoiceAuto:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}

	return params
}

// convertMessagesToAnthropic converts conversation history to Anthropic's format.
// Consecutive tool results are merged into one user turn as the API requires.
func convertMessagesToAnthropic(messages []Message) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)}
			if msg.ImagePNG != "" {
				blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", msg.ImagePNG))
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(blocks...))
		case RoleAssistant:
			var contentItems []anthropic.ContentBlockParamUnion
			for _, r := range msg.Reasoning {
				if r.Signature != "" {
					contentItems = append(contentItems, anthropic.NewThinkingBlock(r.Signature, r.Text))
				}
			}
			if msg.Content != "" {
				contentItems = append(contentItems, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input, err := argsMap(tc.Arguments)
				if err != nil {
					input = map[string]interface{}{}
				}
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					}})
			}
			if len(contentItems) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: contentItems,
			})
		case RoleTool:
			blocks := []anthropic.ContentBlockParamUnion{{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{
							Text: msg.Content,
						},
					}},
				},
			}}
			if msg.ImagePNG != "" {
				blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", msg.ImagePNG))
			}
			if n := len(anthropicMessages); n > 0 && isToolResultTurn(anthropicMessages[n-1]) {
				anthropicMessages[n-1].Content = append(anthropicMessages[n-1].Content, blocks...)
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: blocks,
			})
		}
	}

	return anthropicMessages
}

func isToolResultTurn(m anthropic.MessageParam) bool {
	return m.Role == anthropic.MessageParamRoleUser && len(m.Content) > 0 && m.Content[0].OfToolResult != nil
}

// convertToolsToAnthropic converts tool definitions to Anthropic's tool format.
func convertToolsToAnthropic(ts []ToolDefinition) []anthropic.ToolParam {
	if len(ts) == 0 {
		return nil
	}

	var anthropicTools []anthropic.ToolParam
	for _, t := range ts {
		properties, _ := t.Parameters["properties"].(map[string]interface{})
		if properties == nil {
			properties = map[string]interface{}{}
		}
		required, _ := t.Parameters["required"].([]string)
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		})
	}
	return anthropicTools
}

// processAnthropicResponse converts an Anthropic API response into a Response.
func processAnthropicResponse(resp *anthropic.Message) (*Response, error) {
	out := &Response{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	var text, thinking strings.Builder
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(c.Text)
		case anthropic.ThinkingBlock:
			thinking.WriteString(c.Thinking)
			out.ReasoningBlocks = append(out.ReasoningBlocks, ReasoningBlock{Text: c.Thinking, Signature: c.Signature})
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        c.ID,
				Name:      c.Name,
				Arguments: c.Input,
			})
		}
	}

	out.Text = text.String()
	if thinking.Len() > 0 {
		out.Reasoning = stringPtr(thinking.String())
	}
	return out, nil
}
