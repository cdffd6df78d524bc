package llm

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesToAnthropic(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "Query: sqli"},
		{Role: RoleAssistant, Content: "searching", ToolCalls: []ToolCall{
			{ID: "a", Name: "web_search", Arguments: json.RawMessage(`{"query":"sqli"}`)},
			{ID: "b", Name: "web_search", Arguments: json.RawMessage(`{"query":"xss"}`)},
		}},
		{Role: RoleTool, ToolCallID: "a", Content: "r1"},
		{Role: RoleTool, ToolCallID: "b", Content: "r2", ImagePNG: "aGk="},
		{Role: RoleAssistant},
	}

	out := convertMessagesToAnthropic(messages)
	require.Len(t, out, 3, "empty assistant message dropped and tool results merged")

	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	require.Len(t, out[1].Content, 3)
	require.NotNil(t, out[1].Content[1].OfToolUse)
	assert.Equal(t, "web_search", out[1].Content[1].OfToolUse.Name)

	require.Len(t, out[2].Content, 3)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "a", out[2].Content[0].OfToolResult.ToolUseID)
	require.NotNil(t, out[2].Content[1].OfToolResult)
	assert.Equal(t, "b", out[2].Content[1].OfToolResult.ToolUseID)
	assert.NotNil(t, out[2].Content[2].OfImage)
}

func TestConvertToolsToAnthropic(t *testing.T) {
	assert.Nil(t, convertToolsToAnthropic(nil))

	out := convertToolsToAnthropic([]ToolDefinition{{
		Name:        "web_search",
		Description: "search",
		Parameters: Schema{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
			"required": []string{"query"},
		},
	}})
	require.Len(t, out, 1)
	assert.Equal(t, "web_search", out[0].Name)
	assert.Equal(t, []string{"query"}, out[0].InputSchema.Required)
	assert.Contains(t, out[0].InputSchema.Properties, "query")
}

func TestBuildAnthropicParams(t *testing.T) {
	req := Request{
		Model:    "claude-sonnet-4-5",
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Tools:    []ToolDefinition{{Name: "computer"}},
		Settings: Settings{ToolChoice: ToolChoiceRequired, MaxTokens: 99},
	}

	params := buildAnthropicParams(req, 4096)
	assert.Equal(t, int64(99), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "sys", params.System[0].Text)
	require.Len(t, params.Tools, 1)
	assert.NotNil(t, params.ToolChoice.OfAny)
}

func TestBuildAnthropicParams_ReasoningSummaryEnablesThinking(t *testing.T) {
	temp := 0.3
	req := Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Tools:    []ToolDefinition{{Name: "computer"}},
		Settings: Settings{
			ToolChoice:       ToolChoiceRequired,
			ReasoningSummary: ReasoningSummaryConcise,
			Temperature:      &temp,
		},
	}

	params := buildAnthropicParams(req, 4096)
	require.NotNil(t, params.Thinking.OfEnabled)
	assert.Equal(t, int64(1024), params.Thinking.OfEnabled.BudgetTokens)
	assert.Equal(t, int64(4096+1024), params.MaxTokens, "budget sits on top of the answer tokens")
	assert.False(t, params.Temperature.Valid(), "thinking rejects temperature")
	assert.Nil(t, params.ToolChoice.OfAny, "thinking rejects forced tool use")
	assert.NotNil(t, params.ToolChoice.OfAuto)

	req.Settings.ReasoningSummary = ""
	params = buildAnthropicParams(req, 4096)
	assert.Nil(t, params.Thinking.OfEnabled)
	assert.True(t, params.Temperature.Valid())
	assert.NotNil(t, params.ToolChoice.OfAny)
}

func TestConvertMessagesToAnthropic_ReplaysThinking(t *testing.T) {
	out := convertMessagesToAnthropic([]Message{
		{Role: RoleUser, Content: "start"},
		{Role: RoleAssistant, Reasoning: []ReasoningBlock{
			{Text: "look at the form", Signature: "sig-1"},
			{Text: "unsigned is dropped"},
		}, ToolCalls: []ToolCall{{ID: "c1", Name: "computer", Arguments: json.RawMessage(`{}`)}}},
	})

	require.Len(t, out, 2)
	require.Len(t, out[1].Content, 2)
	require.NotNil(t, out[1].Content[0].OfThinking, "thinking leads the assistant turn")
	assert.Equal(t, "sig-1", out[1].Content[0].OfThinking.Signature)
	assert.Equal(t, "look at the form", out[1].Content[0].OfThinking.Thinking)
	assert.NotNil(t, out[1].Content[1].OfToolUse)
}

func TestProcessAnthropicResponse_KeepsThinkingSignature(t *testing.T) {
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [
			{"type": "thinking", "thinking": "try a quote in the search box", "signature": "sig-1"},
			{"type": "tool_use", "id": "toolu_1", "name": "computer", "input": {"action": "screenshot"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 3}
	}`), &msg))

	resp, err := processAnthropicResponse(&msg)
	require.NoError(t, err)
	require.NotNil(t, resp.Reasoning)
	assert.Equal(t, "try a quote in the search box", *resp.Reasoning)
	assert.Equal(t, []ReasoningBlock{{Text: "try a quote in the search box", Signature: "sig-1"}}, resp.ReasoningBlocks)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
}
