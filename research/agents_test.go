package research

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClient answers every request with text and records the requests.
type fixedClient struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []llm.Request
}

func (c *fixedClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.text, StopReason: "stop"}, nil
}

func runnerFor(c llm.Client) *agent.Runner {
	return agent.NewRunner(c, logger.NewTestLogger(), 0)
}

func TestAgentPlanner(t *testing.T) {
	client := &fixedClient{text: "```json\n{\"searches\":[{\"reason\":\"r1\",\"query\":\"q1\"},{\"reason\":\"r2\",\"query\":\"q2\"}]}\n```"}
	p := &AgentPlanner{Runner: runnerFor(client), Agent: NewPlannerAgent("")}

	plan, err := p.Plan(context.Background(), "comments form is injectable")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, plan.Queries())
	assert.Equal(t, "r2", plan.Searches[1].Reason)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, DefaultPlannerModel, req.Model)
	assert.Equal(t, "Query: comments form is injectable", req.Messages[0].Content)
	require.NotNil(t, req.OutputSchema)
	assert.Equal(t, "WebSearchPlan", req.OutputSchema.Name)
}

func TestAgentPlanner_InvalidShape(t *testing.T) {
	p := &AgentPlanner{Runner: runnerFor(&fixedClient{text: "I could not plan anything"}), Agent: NewPlannerAgent("gpt-4.1")}

	_, err := p.Plan(context.Background(), "q")
	assert.ErrorIs(t, err, agent.ErrInvalidOutput)
}

func TestAgentSearcher(t *testing.T) {
	client := &fixedClient{text: "Use parameterized queries."}
	s := &AgentSearcher{Runner: runnerFor(client), Agent: NewSearchAgent("")}

	out, err := s.Search(context.Background(), SearchDirective{Query: "sqli fix", Reason: "remediation"})
	require.NoError(t, err)
	assert.Equal(t, "Use parameterized queries.", out)
	assert.Equal(t, "Search term: sqli fix\nReason for searching: remediation", client.requests[0].Messages[0].Content)
}

func TestAgentSearcher_Failures(t *testing.T) {
	boom := errors.New("rate limited")
	s := &AgentSearcher{Runner: runnerFor(&fixedClient{err: boom}), Agent: NewSearchAgent("")}
	_, err := s.Search(context.Background(), SearchDirective{Query: "q"})
	assert.ErrorIs(t, err, boom)

	s = &AgentSearcher{Runner: runnerFor(&fixedClient{text: "  "}), Agent: NewSearchAgent("")}
	_, err = s.Search(context.Background(), SearchDirective{Query: "q"})
	assert.ErrorIs(t, err, agent.ErrNoFinalOutput)
}

func TestAgentWriter(t *testing.T) {
	client := &fixedClient{text: `{"short_summary":"Injection confirmed.","markdown_report":"# Report"}`}
	w := &AgentWriter{Runner: runnerFor(client), Agent: NewWriterAgent("")}

	report, err := w.Write(context.Background(), "q", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, &ReportArtifact{ShortSummary: "Injection confirmed.", MarkdownReport: "# Report"}, report)

	req := client.requests[0]
	assert.Equal(t, DefaultWriterModel, req.Model)
	assert.Equal(t, "ReportData", req.OutputSchema.Name)
	assert.Contains(t, req.Messages[0].Content, "Original query: q\nSummarized search results:")
}

func TestNewSearchAgent_Tools(t *testing.T) {
	tool := &agent.FunctionTool{Name: "web_search"}
	a := NewSearchAgent("m", tool)
	assert.Equal(t, "m", a.Model)
	assert.Len(t, a.Tools, 1)
	assert.Nil(t, a.Output)
}
