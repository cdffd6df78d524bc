package computer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
)

// ToolName is the name the decision engine calls the device by.
const ToolName = "computer"

// Action names accepted by the computer tool.
const (
	ActionScreenshot  = "screenshot"
	ActionClick       = "click"
	ActionDoubleClick = "double_click"
	ActionMove        = "move"
	ActionScroll      = "scroll"
	ActionType        = "type"
	ActionKeypress    = "keypress"
	ActionDrag        = "drag"
	ActionWait        = "wait"
)

var actions = []string{
	ActionScreenshot, ActionClick, ActionDoubleClick, ActionMove, ActionScroll,
	ActionType, ActionKeypress, ActionDrag, ActionWait,
}

// Tool exposes a Session's capability surface as a single agent tool. Every
// call answers with a fresh screenshot so the model can observe the effect.
type Tool struct {
	session *Session
}

// NewTool binds a tool to session.
func NewTool(session *Session) *Tool {
	return &Tool{session: session}
}

type actionArgs struct {
	Action  string   `json:"action"`
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Button  string   `json:"button"`
	ScrollX int      `json:"scroll_x"`
	ScrollY int      `json:"scroll_y"`
	Text    string   `json:"text"`
	Keys    []string `json:"keys"`
	Path    []Point  `json:"path"`
}

func (t *Tool) Kind() agent.ToolKind { return agent.ToolKindComputer }

func (t *Tool) Definition() llm.ToolDefinition {
	coord := map[string]interface{}{"type": "integer"}
	return llm.ToolDefinition{
		Name: ToolName,
		Description: fmt.Sprintf("Control a web browser with a %dx%d viewport. "+
			"Coordinates are pixels from the top-left corner. Every call returns a screenshot.",
			Dimensions.Width, Dimensions.Height),
		Parameters: llm.Schema{
			"type": "object",
			"properties": map[string]interface{}{
				"action": map[string]interface{}{
					"type": "string",
					"enum": actions,
				},
				"x":        coord,
				"y":        coord,
				"scroll_x": coord,
				"scroll_y": coord,
				"button": map[string]interface{}{
					"type": "string",
					"enum": []string{string(ButtonLeft), string(ButtonMiddle), string(ButtonRight)},
				},
				"text": map[string]interface{}{"type": "string"},
				"keys": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Key names pressed together, e.g. [\"ctrl\", \"a\"].",
				},
				"path": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x": coord,
							"y": coord,
						},
						"required": []string{"x", "y"},
					},
				},
			},
			"required": []string{"action"},
		},
	}
}

// Call performs one action. Action failures are logged by the session and
// never returned; only malformed arguments are.
func (t *Tool) Call(ctx context.Context, raw json.RawMessage) (agent.ToolResult, error) {
	var args actionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return agent.ToolResult{}, fmt.Errorf("invalid computer arguments: %w", err)
	}

	s := t.session
	switch args.Action {
	case ActionScreenshot:
	case ActionClick:
		s.Click(ctx, args.X, args.Y, args.Button)
	case ActionDoubleClick:
		s.DoubleClick(ctx, args.X, args.Y)
	case ActionMove:
		s.Move(ctx, args.X, args.Y)
	case ActionScroll:
		s.Scroll(ctx, args.X, args.Y, args.ScrollX, args.ScrollY)
	case ActionType:
		s.Type(ctx, args.Text)
	case ActionKeypress:
		s.Keypress(ctx, args.Keys)
	case ActionDrag:
		s.Drag(ctx, args.Path)
	case ActionWait:
		s.Wait(ctx)
	default:
		return agent.ToolResult{}, fmt.Errorf("unknown computer action %q", args.Action)
	}

	img := s.Screenshot(ctx)
	if img == "" {
		return agent.ToolResult{Content: args.Action + ": done, screenshot unavailable"}, nil
	}
	return agent.ToolResult{Content: args.Action + ": done", ImagePNG: img}, nil
}
