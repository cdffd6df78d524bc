package llm

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGeminiSchema(t *testing.T) {
	s := Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"searches": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query":  map[string]interface{}{"type": "string", "description": "search term"},
						"reason": map[string]interface{}{"type": "string"},
					},
					"required": []string{"query", "reason"},
				},
			},
		},
		"required": []string{"searches"},
	}

	out := toGeminiSchema(s)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"searches"}, out.Required)

	searches := out.Properties["searches"]
	require.NotNil(t, searches)
	assert.Equal(t, genai.TypeArray, searches.Type)
	require.NotNil(t, searches.Items)
	assert.Equal(t, "search term", searches.Items.Properties["query"].Description)
	assert.Equal(t, genai.TypeString, searches.Items.Properties["reason"].Type)

	assert.Equal(t, genai.TypeObject, toGeminiSchema(nil).Type)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "1", Name: "web_search", Arguments: json.RawMessage(`{"query":"a"}`)},
			{ID: "2", Name: "web_search", Arguments: json.RawMessage(`{"query":"b"}`)},
		}},
		{Role: RoleTool, ToolCallID: "1", ToolName: "web_search", Content: "r1"},
		{Role: RoleTool, ToolCallID: "2", ToolName: "web_search", Content: "r2"},
	}

	out, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "model", out[1].Role)
	require.Len(t, out[1].Parts, 2)
	call, ok := out[1].Parts[0].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "a", call.Args["query"])

	require.Len(t, out[2].Parts, 2)
	resp, ok := out[2].Parts[1].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "r2", resp.Response["output"])
}

func TestConvertMessagesToGemini_BadArgs(t *testing.T) {
	_, err := convertMessagesToGemini([]Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "x", Arguments: json.RawMessage(`nope`)}}},
	})
	assert.Error(t, err)
}

func TestProcessGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("hello "),
				genai.FunctionCall{Name: "fetch_page", Args: map[string]any{"url": "http://x"}},
				genai.Text("world"),
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 3, CandidatesTokenCount: 4},
	}

	out, err := processGeminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Text)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_1_fetch_page", out.ToolCalls[0].ID)
	assert.Equal(t, int64(4), out.Usage.OutputTokens)

	_, err = processGeminiResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
