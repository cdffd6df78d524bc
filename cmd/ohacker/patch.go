package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hairizuanbinnoorazman/ohacker/patch"
	"github.com/spf13/cobra"
)

var (
	patchFindings     string
	patchFindingsFile string
)

var patchCmd = &cobra.Command{
	Use:   "patch <source-file>",
	Short: "Fix a vulnerable source file and write patch_description.md and fixed.py next to it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatch,
}

func init() {
	patchCmd.Flags().StringVarP(&patchFindings, "findings", "f", "", "short summary of the findings")
	patchCmd.Flags().StringVar(&patchFindingsFile, "findings-file", "", "read the findings from a file, e.g. report.md")
	rootCmd.AddCommand(patchCmd)
}

func runPatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	findings := patchFindings
	if patchFindingsFile != "" {
		data, err := os.ReadFile(patchFindingsFile)
		if err != nil {
			return fmt.Errorf("failed to read findings: %w", err)
		}
		findings = string(data)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	p, err := patch.PatchFile(ctx, a.runner, a.cfg.Agent.PatchModel, findings, args[0], a.log)
	if err != nil {
		return err
	}
	printPatch(cmd.OutOrStdout(), p)
	return nil
}

func printPatch(w io.Writer, p *patch.SecurityPatch) {
	fmt.Fprintln(w, p.Description)
	fmt.Fprintln(w, p.PythonCode)
}
