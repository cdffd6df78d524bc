package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), "cohere", Config{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	for _, provider := range []string{"openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			_, err := New(context.Background(), provider, Config{})
			assert.ErrorIs(t, err, ErrMissingAPIKey)
		})
	}
}

func TestNew_KeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := New(context.Background(), "OpenAI", Config{})
	require.NoError(t, err)
	oc, ok := c.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, defaultMaxTokens, oc.maxTokens)
}

func TestClientFunc(t *testing.T) {
	var got Request
	c := ClientFunc(func(ctx context.Context, req Request) (*Response, error) {
		got = req
		return &Response{Text: "ok"}, nil
	})

	resp, err := c.Chat(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, "m", got.Model)
}

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		contains []string
		equal    string
	}{
		{
			name:  "no schema",
			req:   Request{System: "be terse"},
			equal: "be terse",
		},
		{
			name: "schema appended",
			req: Request{
				System: "plan searches",
				OutputSchema: &OutputSchema{
					Name:   "SearchPlan",
					Schema: Schema{"type": "object"},
				},
			},
			contains: []string{"plan searches\n\n", "SearchPlan", `"type": "object"`},
		},
		{
			name: "schema without instructions",
			req: Request{
				OutputSchema: &OutputSchema{Name: "X", Schema: Schema{}},
			},
			contains: []string{"Respond with a single JSON object named X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := systemPrompt(tt.req)
			if tt.equal != "" {
				assert.Equal(t, tt.equal, got)
			}
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
		})
	}
}

func TestArgsMap(t *testing.T) {
	m, err := argsMap(nil)
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = argsMap(json.RawMessage(`{"action":"click","x":3}`))
	require.NoError(t, err)
	assert.Equal(t, "click", m["action"])

	_, err = argsMap(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
