package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hairizuanbinnoorazman/ohacker/research"
	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Research remediations for a vulnerability description and write report.md",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	query := strings.Join(args, " ")
	res, err := a.researchManager().Run(ctx, query)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), res)
	return nil
}

func printReport(w io.Writer, res *research.Result) {
	fmt.Fprintf(w, "\n\n=====FINAL REPORT SUMMARY=====\n\n")
	fmt.Fprintf(w, "Report summary\n\n%s\n", res.Report.ShortSummary)
	fmt.Fprintf(w, "\n\n=====REPORT=====\n\n")
	fmt.Fprintf(w, "Report: %s\n", res.Report.MarkdownReport)
	if res.ReportLocation != "" {
		fmt.Fprintf(w, "\nWritten to %s\n", res.ReportLocation)
	}
}
