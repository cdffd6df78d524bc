package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
)

const (
	DefaultPlannerModel = "gpt-4o"
	DefaultSearchModel  = "gpt-4o"
	DefaultWriterModel  = "o4-mini"
)

const plannerPrompt = "You are a helpful cybersecurity assistant. Given a description of the vulnerability of the website, " +
	"come up with a set of web searches " +
	"to perform to find the best recommendations to fix those vulnerabilities. Output between 5 and 10 terms to query for."

const searchPrompt = "You are a cybersecurity research assistant. Given a search term, you search the web for that term " +
	"using the web_search tool and read the most relevant pages with fetch_page. Produce a concise summary of the results. " +
	"The summary must be 2-3 paragraphs and less than 300 words. Capture the main points, with emphasis on concrete " +
	"remediation advice. Do not add commentary beyond the summary itself."

const writerPrompt = "You are a senior cybersecurity expert tasked with writing a cohesive report for detected vulnerability. " +
	"You will be provided with short description of each vulnerability that was found.\n" +
	"You can browse web to find information about the vulnerability to extend the report.\n" +
	"In the report you should include information about the vulnerability, but also how to fix it.\n" +
	"You should first come up with an outline for the report that describes the structure and " +
	"flow of the report. Then, generate the report and return that as your final output.\n" +
	"The final output should be in markdown format, and it should be lengthy and detailed. Aim " +
	"for 2-6 pages of content, at least 500 words."

// NewPlannerAgent builds the agent that turns a query into a SearchPlan.
func NewPlannerAgent(model string) *agent.Agent {
	if model == "" {
		model = DefaultPlannerModel
	}
	return &agent.Agent{
		Name:         "PlannerAgent",
		Instructions: plannerPrompt,
		Model:        model,
		Output:       searchPlanOutput,
	}
}

// NewSearchAgent builds the agent that summarizes one search. The tools are
// normally websearch's web_search and fetch_page.
func NewSearchAgent(model string, tools ...agent.Tool) *agent.Agent {
	if model == "" {
		model = DefaultSearchModel
	}
	return &agent.Agent{
		Name:         "SearchAgent",
		Instructions: searchPrompt,
		Model:        model,
		Tools:        tools,
	}
}

// NewWriterAgent builds the agent that writes the final ReportArtifact.
func NewWriterAgent(model string) *agent.Agent {
	if model == "" {
		model = DefaultWriterModel
	}
	return &agent.Agent{
		Name:         "WriterAgent",
		Instructions: writerPrompt,
		Model:        model,
		Output:       reportOutput,
	}
}

// Planner produces a SearchPlan for a query.
type Planner interface {
	Plan(ctx context.Context, query string) (*SearchPlan, error)
}

// Searcher runs one search directive and returns its summary.
type Searcher interface {
	Search(ctx context.Context, d SearchDirective) (string, error)
}

// Writer turns the query and the collected search summaries into a report.
type Writer interface {
	Write(ctx context.Context, query string, results []string) (*ReportArtifact, error)
}

// AgentPlanner is a Planner backed by an agent run.
type AgentPlanner struct {
	Runner *agent.Runner
	Agent  *agent.Agent
}

func (p *AgentPlanner) Plan(ctx context.Context, query string) (*SearchPlan, error) {
	result, err := p.Runner.Run(ctx, p.Agent, "Query: "+query)
	if err != nil {
		return nil, err
	}
	var plan SearchPlan
	if err := agent.DecodeOutput(result, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// AgentSearcher is a Searcher backed by an agent run.
type AgentSearcher struct {
	Runner *agent.Runner
	Agent  *agent.Agent
}

func (s *AgentSearcher) Search(ctx context.Context, d SearchDirective) (string, error) {
	result, err := s.Runner.Run(ctx, s.Agent, d.Prompt())
	if err != nil {
		return "", err
	}
	if result.FinalOutput == nil || strings.TrimSpace(*result.FinalOutput) == "" {
		return "", fmt.Errorf("search %q: %w", d.Query, agent.ErrNoFinalOutput)
	}
	return *result.FinalOutput, nil
}

// AgentWriter is a Writer backed by an agent run.
type AgentWriter struct {
	Runner *agent.Runner
	Agent  *agent.Agent
}

func (w *AgentWriter) Write(ctx context.Context, query string, results []string) (*ReportArtifact, error) {
	result, err := w.Runner.Run(ctx, w.Agent, writerInput(query, results))
	if err != nil {
		return nil, err
	}
	var report ReportArtifact
	if err := agent.DecodeOutput(result, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
