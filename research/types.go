package research

import (
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
)

// SearchDirective is one planned web search.
type SearchDirective struct {
	// Query is the search term.
	Query string `json:"query"`
	// Reason explains why the search matters to the original query.
	Reason string `json:"reason"`
}

// Prompt composes the search collaborator's input for the directive.
func (d SearchDirective) Prompt() string {
	return fmt.Sprintf("Search term: %s\nReason for searching: %s", d.Query, d.Reason)
}

// SearchPlan is the planner's structured output. An empty plan is valid.
type SearchPlan struct {
	Searches []SearchDirective `json:"searches"`
}

// Queries returns the search terms in plan order.
func (p *SearchPlan) Queries() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Searches))
	for _, s := range p.Searches {
		out = append(out, s.Query)
	}
	return out
}

// ReportArtifact is the writer's structured output.
type ReportArtifact struct {
	ShortSummary   string `json:"short_summary"`
	MarkdownReport string `json:"markdown_report"`
}

var searchPlanOutput = &agent.OutputType{
	Name: "WebSearchPlan",
	Schema: llm.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"searches": map[string]interface{}{
				"type":        "array",
				"description": "A list of web searches to perform to find the best recommendations to fix those vulnerabilities.",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"reason": map[string]interface{}{
							"type":        "string",
							"description": "Your reasoning for why this search is important to the query.",
						},
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The search term to use for the web search.",
						},
					},
					"required":             []string{"reason", "query"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"searches"},
		"additionalProperties": false,
	},
}

var reportOutput = &agent.OutputType{
	Name: "ReportData",
	Schema: llm.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"short_summary": map[string]interface{}{
				"type":        "string",
				"description": "A short 2-3 sentence summary of the findings.",
			},
			"markdown_report": map[string]interface{}{
				"type":        "string",
				"description": "The final report",
			},
		},
		"required":             []string{"short_summary", "markdown_report"},
		"additionalProperties": false,
	},
}

func writerInput(query string, results []string) string {
	return fmt.Sprintf("Original query: %s\nSummarized search results: %s", query, formatResults(results))
}

func formatResults(results []string) string {
	if len(results) == 0 {
		return "[]"
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n[%d]\n%s", i+1, r)
	}
	return b.String()
}
