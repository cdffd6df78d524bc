package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAIClient is a client for the OpenAI Chat Completion API.
type OpenAIClient struct {
	client    *openai.Client
	maxTokens int
}

// NewOpenAIClient creates a new OpenAIClient. baseURL is optional.
func NewOpenAIClient(apiKey, baseURL string, maxTokens int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	return &OpenAIClient{client: &c, maxTokens: maxTokens}, nil
}

// Chat sends one chat completion request.
func (o *OpenAIClient) Chat(ctx context.Context, req Request) (*Response, error) {
	resp, err := o.client.Chat.Completions.New(ctx, buildOpenAIParams(req, o.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to OpenAI: %w", err)
	}
	return processOpenAIResponse(resp)
}

func buildOpenAIParams(req Request, defaultMax int) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(req.Model),
		Messages:            convertMessagesToOpenAI(systemPrompt(req), req.Messages),
		Tools:               convertToolsToOpenAI(req.Tools),
		MaxCompletionTokens: openai.Int(int64(maxTokens(req.Settings, defaultMax))),
	}

	if req.Settings.Temperature != nil {
		params.Temperature = openai.Float(*req.Settings.Temperature)
	}
	if effort := reasoningEffort(req.Settings, req.Model); effort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(effort)
	}
	if len(req.Tools) > 0 && req.Settings.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(req.Settings.ToolChoice)),
		}
	}
	if req.OutputSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.OutputSchema.Name,
					Schema: map[string]interface{}(req.OutputSchema.Schema),
					Strict: openai.Bool(true),
				},
			},
		}
	}

	return params
}

// processOpenAIResponse converts an OpenAI API response into a Response.
func processOpenAIResponse(resp *openai.ChatCompletion) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	out := &Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			return nil, fmt.Errorf("invalid arguments for tool call %s from OpenAI", tc.Function.Name)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return out, nil
}

// convertMessagesToOpenAI converts conversation history to OpenAI's format.
// Tool messages cannot carry images, so an attached screenshot is sent as a
// follow-up user message.
func convertMessagesToOpenAI(system string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		chatMessages = append(chatMessages, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			assistantMessage := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				var toolCalls []openai.ChatCompletionMessageToolCallUnion
				for _, tc := range msg.ToolCalls {
					arguments := string(tc.Arguments)
					if arguments == "" {
						arguments = "{}"
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageFunctionToolCallFunction{
							Name:      tc.Name,
							Arguments: arguments,
						},
					})
				}
				assistantMessage.ToolCalls = toolCalls
			}
			chatMessages = append(chatMessages, assistantMessage.ToParam())
		case RoleTool:
			chatMessages = append(chatMessages, openai.ToolMessage(msg.Content, msg.ToolCallID))
			if msg.ImagePNG != "" {
				chatMessages = append(chatMessages, openAIImageMessage("Screenshot returned by "+msg.ToolName+".", msg.ImagePNG))
			}
		default:
			if msg.ImagePNG != "" {
				chatMessages = append(chatMessages, openAIImageMessage(msg.Content, msg.ImagePNG))
				continue
			}
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}

func openAIImageMessage(text, b64 string) openai.ChatCompletionMessageParamUnion {
	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(text),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + b64,
		}),
	})
}

// convertToolsToOpenAI converts tool definitions to OpenAI function tools.
func convertToolsToOpenAI(ts []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var openAITools []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		params := openai.FunctionParameters(t.Parameters)
		if params == nil {
			params = openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		openAITools = append(openAITools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		}))
	}
	return openAITools
}
