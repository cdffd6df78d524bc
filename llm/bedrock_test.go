package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBedrockRequest(t *testing.T) {
	temp := 0.2
	req := Request{
		Model:  "anthropic.claude-3-5-sonnet",
		System: "You are a tester.",
		Messages: []Message{
			{Role: RoleUser, Content: "start"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "t1", Name: "computer", Arguments: json.RawMessage(`{"action":"screenshot"}`)},
				{ID: "t2", Name: "computer"},
			}},
			{Role: RoleTool, ToolCallID: "t1", ToolName: "computer", Content: "ok", ImagePNG: "aGk="},
			{Role: RoleTool, ToolCallID: "t2", ToolName: "computer", Content: "ok"},
		},
		Tools: []ToolDefinition{
			{Name: "computer", Description: "drive the browser", Parameters: Schema{"type": "object"}},
		},
		Settings: Settings{Temperature: &temp, ToolChoice: ToolChoiceRequired},
	}

	payload, err := createBedrockRequest(req, 1024)
	require.NoError(t, err)

	var body bedrockRequest
	require.NoError(t, json.Unmarshal(payload, &body))

	assert.Equal(t, bedrockAnthropicVersion, body.AnthropicVersion)
	assert.Equal(t, 1024, body.MaxTokens)
	assert.Equal(t, "You are a tester.", body.System)
	require.NotNil(t, body.ToolChoice)
	assert.Equal(t, "any", body.ToolChoice.Type)
	require.NotNil(t, body.Temperature)
	assert.Equal(t, 0.2, *body.Temperature)

	require.Len(t, body.Messages, 3, "consecutive tool results share one user turn")
	assert.Equal(t, "assistant", body.Messages[1].Role)
	assert.JSONEq(t, `{}`, string(body.Messages[1].Content[1].Input))

	results := body.Messages[2].Content
	require.Len(t, results, 3)
	assert.Equal(t, "tool_result", results[0].Type)
	assert.Equal(t, "image", results[1].Type)
	assert.Equal(t, "t2", results[2].ToolUseID)
}

func TestCreateBedrockRequest_Thinking(t *testing.T) {
	temp := 0.2
	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: "start"},
			{Role: RoleAssistant, Reasoning: []ReasoningBlock{{Text: "check login", Signature: "sig"}},
				ToolCalls: []ToolCall{{ID: "t1", Name: "computer", Arguments: json.RawMessage(`{}`)}}},
			{Role: RoleTool, ToolCallID: "t1", Content: "ok"},
		},
		Tools:    []ToolDefinition{{Name: "computer", Parameters: Schema{"type": "object"}}},
		Settings: Settings{Temperature: &temp, ToolChoice: ToolChoiceRequired, ReasoningSummary: ReasoningSummaryDetailed},
	}

	payload, err := createBedrockRequest(req, 1024)
	require.NoError(t, err)

	var body bedrockRequest
	require.NoError(t, json.Unmarshal(payload, &body))
	require.NotNil(t, body.Thinking)
	assert.Equal(t, "enabled", body.Thinking.Type)
	assert.Equal(t, int64(4096), body.Thinking.BudgetTokens)
	assert.Equal(t, 1024+4096, body.MaxTokens)
	assert.Nil(t, body.Temperature)
	require.NotNil(t, body.ToolChoice)
	assert.Equal(t, "auto", body.ToolChoice.Type)

	first := body.Messages[1].Content[0]
	assert.Equal(t, "thinking", first.Type)
	assert.Equal(t, "check login", first.Thinking)
	assert.Equal(t, "sig", first.Signature)
}

func TestProcessBedrockResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "thinking", "thinking": "look at the form", "signature": "sig-a"},
			{"type": "text", "text": "Clicking submit."},
			{"type": "tool_use", "id": "toolu_1", "name": "computer", "input": {"action": "click", "x": 10, "y": 20}},
			{"type": "tool_use", "name": "computer"}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`)

	resp, err := processBedrockResponse(body)
	require.NoError(t, err)

	assert.Equal(t, "Clicking submit.", resp.Text)
	require.NotNil(t, resp.Reasoning)
	assert.Equal(t, "look at the form", *resp.Reasoning)
	assert.Equal(t, []ReasoningBlock{{Text: "look at the form", Signature: "sig-a"}}, resp.ReasoningBlocks)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, int64(12), resp.Usage.InputTokens)

	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"action":"click","x":10,"y":20}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, "call_3_computer", resp.ToolCalls[1].ID)
	assert.JSONEq(t, `{}`, string(resp.ToolCalls[1].Arguments))
}

func TestProcessBedrockResponse_Errors(t *testing.T) {
	_, err := processBedrockResponse([]byte(`not json`))
	assert.Error(t, err)

	_, err = processBedrockResponse([]byte(`{"error": {"message": "throttled"}}`))
	assert.ErrorContains(t, err, "throttled")
}
