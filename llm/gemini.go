package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	client    *genai.Client
	maxTokens int
}

// NewGeminiClient creates a new GeminiClient.
func NewGeminiClient(ctx context.Context, apiKey string, maxTokens int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, maxTokens: maxTokens}, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Chat sends one request. The model handle is built per call so concurrent
// requests with different settings do not share state.
func (g *GeminiClient) Chat(ctx context.Context, req Request) (*Response, error) {
	model := g.client.GenerativeModel(req.Model)
	configureGeminiModel(model, req, g.maxTokens)

	history, err := convertMessagesToGemini(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("gemini: no messages to send")
	}

	last := history[len(history)-1]
	chatSession := model.StartChat()
	chatSession.History = history[:len(history)-1]
	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message to Gemini: %w", err)
	}

	return processGeminiResponse(resp)
}

func configureGeminiModel(model *genai.GenerativeModel, req Request, defaultMax int) {
	if system := systemPrompt(req); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	model.SetMaxOutputTokens(int32(maxTokens(req.Settings, defaultMax)))
	if req.Settings.Temperature != nil {
		model.SetTemperature(float32(*req.Settings.Temperature))
	}

	model.Tools = convertToolsToGemini(req.Tools)
	if len(model.Tools) > 0 {
		mode := genai.FunctionCallingAuto
		switch req.Settings.ToolChoice {
		case ToolChoiceRequired:
			mode = genai.FunctionCallingAny
		case ToolChoiceNone:
			mode = genai.FunctionCallingNone
		}
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	// Gemini rejects a response schema combined with function calling.
	if req.OutputSchema != nil && len(model.Tools) == 0 {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGeminiSchema(req.OutputSchema.Schema)
	}
}

// convertMessagesToGemini converts conversation history to Gemini's content format.
func convertMessagesToGemini(messages []Message) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := argsMap(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("invalid arguments for tool call %s: %w", tc.Name, err)
				}
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case RoleTool:
			parts := []genai.Part{genai.FunctionResponse{
				Name:     msg.ToolName,
				Response: map[string]any{"output": msg.Content},
			}}
			if img, err := decodePNG(msg.ImagePNG); err == nil && img != nil {
				parts = append(parts, genai.ImageData("png", img))
			}
			if n := len(contents); n > 0 && contents[n-1].Role == "user" && isFunctionResponse(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, parts...)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		default:
			parts := []genai.Part{genai.Text(msg.Content)}
			if img, err := decodePNG(msg.ImagePNG); err == nil && img != nil {
				parts = append(parts, genai.ImageData("png", img))
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return contents, nil
}

func isFunctionResponse(c *genai.Content) bool {
	if len(c.Parts) == 0 {
		return false
	}
	_, ok := c.Parts[0].(genai.FunctionResponse)
	return ok
}

func decodePNG(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(b64)
}

// convertToolsToGemini converts tool definitions to Gemini function declarations.
func convertToolsToGemini(ts []ToolDefinition) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var funcDecls []*genai.FunctionDeclaration
	for _, t := range ts {
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// toGeminiSchema converts the subset of JSON schema used by this module.
func toGeminiSchema(s Schema) *genai.Schema {
	if s == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return schemaFromMap(map[string]interface{}(s))
}

func schemaFromMap(m map[string]interface{}) *genai.Schema {
	out := &genai.Schema{}
	switch m["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if d, ok := m["description"].(string); ok {
		out.Description = d
	}
	if enum, ok := m["enum"].([]string); ok {
		out.Enum = enum
	}
	if required, ok := m["required"].([]string); ok {
		out.Required = required
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				out.Properties[name] = schemaFromMap(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]interface{}); ok {
		out.Items = schemaFromMap(items)
	}
	return out
}

// processGeminiResponse converts a Gemini API response into a Response.
func processGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	out := &Response{StopReason: candidate.FinishReason.String()}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal function call arguments: %w", err)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d_%s", i, v.Name),
				Name:      v.Name,
				Arguments: args,
			})
		default:
			return nil, fmt.Errorf("unsupported part type in Gemini response: %T", v)
		}
	}
	out.Text = text.String()
	return out, nil
}
