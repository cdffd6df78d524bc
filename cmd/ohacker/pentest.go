package main

import (
	"context"
	"fmt"

	"github.com/hairizuanbinnoorazman/ohacker/patch"
	"github.com/spf13/cobra"
)

var (
	pentestTarget      string
	pentestResearch    bool
	pentestPatchSource string
)

var pentestCmd = &cobra.Command{
	Use:   "pentest",
	Short: "Run the SQL injection agent against the target site",
	RunE:  runPentest,
}

func init() {
	pentestCmd.Flags().StringVarP(&pentestTarget, "target", "t", "", "target URL (overrides target.url)")
	pentestCmd.Flags().BoolVar(&pentestResearch, "research", false, "research remediations for the findings afterwards")
	pentestCmd.Flags().StringVar(&pentestPatchSource, "patch", "", "source file to patch using the findings")
	rootCmd.AddCommand(pentestCmd)
}

func runPentest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Run starting ===")
	report, err := a.tester(pentestTarget).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "=== Run complete ===")
	if report.Summary != nil {
		fmt.Fprintf(out, "\n%s\n", *report.Summary)
	} else {
		fmt.Fprintln(out, "\n(no summary produced)")
	}
	fmt.Fprintf(out, "Final URL: %s (turns: %d)\n", report.FinalURL, report.Turns)

	if pentestResearch {
		res, err := a.researchManager().Run(ctx, report.SummaryText())
		if err != nil {
			return err
		}
		printReport(out, res)
	}

	if pentestPatchSource != "" {
		p, err := patch.PatchFile(ctx, a.runner, a.cfg.Agent.PatchModel, report.SummaryText(), pentestPatchSource, a.log)
		if err != nil {
			return err
		}
		printPatch(out, p)
	}
	return nil
}
