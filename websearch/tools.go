package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
)

// SearchTool exposes Search as the web_search function tool.
func (c *Client) SearchTool() agent.Tool {
	return &agent.FunctionTool{
		Name:        "web_search",
		Description: "Search the web. Returns titles, URLs and snippets of the top results.",
		Parameters: llm.Schema{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string", "description": "The search term."},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (agent.ToolResult, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				return agent.ToolResult{}, fmt.Errorf("invalid web_search arguments: %w", err)
			}
			results, err := c.Search(ctx, args.Query)
			if err != nil {
				return agent.ToolResult{}, err
			}
			return agent.ToolResult{Content: formatResults(results)}, nil
		},
	}
}

// FetchTool exposes Fetch as the fetch_page function tool.
func (c *Client) FetchTool() agent.Tool {
	return &agent.FunctionTool{
		Name:        "fetch_page",
		Description: "Fetch a web page and return its readable text.",
		Parameters: llm.Schema{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{"type": "string", "description": "Absolute http(s) URL."},
			},
			"required": []string{"url"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (agent.ToolResult, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				return agent.ToolResult{}, fmt.Errorf("invalid fetch_page arguments: %w", err)
			}
			page, err := c.Fetch(ctx, args.URL)
			if err != nil {
				return agent.ToolResult{}, err
			}
			return agent.ToolResult{Content: fmt.Sprintf("%s\n%s\n\n%s", page.Title, page.URL, page.Text)}, nil
		},
	}
}

func formatResults(results []Result) string {
	if len(results) == 0 {
		return "No results."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String()
}
