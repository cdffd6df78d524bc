package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
)

const (
	AgentName       = "CybersecurityPatchAgent"
	DefaultModel    = "o4-mini"
	DescriptionName = "patch_description.md"
	FixedCodeName   = "fixed.py"
)

const instructions = "You are a senior cybersecurity expert tasked with fixing Python code that has security vulnerabilities." +
	"You are given with a short description of the vulnerability and the code that needs to be fixed.\n"

var ErrEmptySource = errors.New("source code is empty")

// SecurityPatch is the patch agent's structured output.
type SecurityPatch struct {
	// Description is markdown describing the issues found and the fix.
	Description string `json:"description"`
	// PythonCode is the full fixed source.
	PythonCode string `json:"python_code"`
}

var patchOutput = &agent.OutputType{
	Name: "SecurityPatch",
	Schema: llm.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Description in markdown format of found issues with the code and how we are going to fix them.",
			},
			"python_code": map[string]interface{}{
				"type":        "string",
				"description": "The full fixed python code",
			},
		},
		"required":             []string{"description", "python_code"},
		"additionalProperties": false,
	},
}

// NewAgent builds the patch agent.
func NewAgent(model string) *agent.Agent {
	if model == "" {
		model = DefaultModel
	}
	return &agent.Agent{
		Name:         AgentName,
		Instructions: instructions,
		Model:        model,
		Output:       patchOutput,
	}
}

func input(findings, code string) string {
	return fmt.Sprintf("Short summary of the findings: \n\n%s\nCode:\n%s\n", findings, code)
}

// Patcher asks the patch agent to fix a source file and stores the result.
type Patcher struct {
	runner *agent.Runner
	agent  *agent.Agent
	store  storage.ArtifactStore
	logger logger.Logger
}

func NewPatcher(runner *agent.Runner, model string, store storage.ArtifactStore, log logger.Logger) *Patcher {
	return &Patcher{
		runner: runner,
		agent:  NewAgent(model),
		store:  store,
		logger: log,
	}
}

// Patch fixes code given a description of the findings. Empty findings are
// valid input. The description and the fixed code are written to
// DescriptionName and FixedCodeName.
func (p *Patcher) Patch(ctx context.Context, findings, code string) (*SecurityPatch, error) {
	if code == "" {
		return nil, ErrEmptySource
	}

	result, err := p.runner.Run(ctx, p.agent, input(findings, code))
	if err != nil {
		return nil, fmt.Errorf("patch agent: %w", err)
	}
	var patch SecurityPatch
	if err := agent.DecodeOutput(result, &patch); err != nil {
		p.logger.Error(ctx, "patch agent returned no usable patch", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if err := p.store.Put(ctx, DescriptionName, []byte(patch.Description)); err != nil {
		return nil, fmt.Errorf("write %s: %w", DescriptionName, err)
	}
	if err := p.store.Put(ctx, FixedCodeName, []byte(patch.PythonCode)); err != nil {
		return nil, fmt.Errorf("write %s: %w", FixedCodeName, err)
	}

	p.logger.Info(ctx, "patch written", map[string]interface{}{
		"description": DescriptionName,
		"code":        FixedCodeName,
	})
	return &patch, nil
}

// PatchFile reads sourcePath and patches it. Output artifacts land next to
// the source file.
func PatchFile(ctx context.Context, runner *agent.Runner, model, findings, sourcePath string, log logger.Logger) (*SecurityPatch, error) {
	code, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	store, err := storage.NewLocalStorage(filepath.Dir(sourcePath))
	if err != nil {
		return nil, err
	}
	return NewPatcher(runner, model, store, log.WithField("source", sourcePath)).Patch(ctx, findings, string(code))
}
