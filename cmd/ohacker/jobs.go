package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hairizuanbinnoorazman/ohacker/job"
	"github.com/spf13/cobra"
)

var (
	flagServerURL string
	flagJSON      bool
)

type jobList struct {
	Items  []*job.Job `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func init() {
	rootCmd.AddCommand(newJobsCmd())
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Queue and inspect jobs on a running server",
	}
	cmd.PersistentFlags().StringVar(&flagServerURL, "server", "http://localhost:8000", "ohacker server URL")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")

	cmd.AddCommand(newJobsCreateCmd())
	cmd.AddCommand(newJobsListCmd())
	cmd.AddCommand(newJobsGetCmd())
	cmd.AddCommand(newJobsReportCmd())
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newJobsCreateCmd() *cobra.Command {
	var (
		query     string
		targetURL string
		research  bool
	)

	cmd := &cobra.Command{
		Use:   "create <research|pentest>",
		Short: "Queue a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType := job.JobType(args[0])
			if !jobType.IsValid() {
				return fmt.Errorf("unknown job type %q", args[0])
			}

			cfg := map[string]interface{}{}
			switch jobType {
			case job.JobTypeResearch:
				cfg["query"] = query
			case job.JobTypePentest:
				if targetURL != "" {
					cfg["target_url"] = targetURL
				}
				cfg["research"] = research
			}

			client := NewClient(flagServerURL, 0)
			body, err := client.Post(cmdContext(cmd), "/api/v1/jobs", map[string]interface{}{
				"type":   jobType,
				"config": cfg,
			})
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), body)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "research query")
	cmd.Flags().StringVar(&targetURL, "target", "", "pentest target URL (defaults to the server's target.url)")
	cmd.Flags().BoolVar(&research, "research", false, "research the pentest findings afterwards")
	return cmd
}

func newJobsListCmd() *cobra.Command {
	var (
		jobType       string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if jobType != "" {
				q.Set("type", jobType)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			body, err := NewClient(flagServerURL, 0).Get(cmdContext(cmd), "/api/v1/jobs", q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagJSON {
				return printJSON(out, body)
			}

			var resp jobList
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			printJobTable(out, resp.Items)
			fmt.Fprintf(out, "\nShowing %d of %d jobs\n", len(resp.Items), resp.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobType, "type", "", "filter by job type")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset for pagination")
	return cmd
}

func newJobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := NewClient(flagServerURL, 0).Get(cmdContext(cmd), "/api/v1/jobs/"+args[0], nil)
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), body)
		},
	}
}

func newJobsReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <id>",
		Short: "Print the markdown report of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := NewClient(flagServerURL, 0).Get(cmdContext(cmd), "/api/v1/jobs/"+args[0]+"/report", nil)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}

func printJSON(w io.Writer, body []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printJob(w io.Writer, body []byte) error {
	if flagJSON {
		return printJSON(w, body)
	}
	var j job.Job
	if err := json.Unmarshal(body, &j); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	printJobTable(w, []*job.Job{&j})
	if j.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", j.Error)
	}
	if s := j.Result.String("short_summary"); s != "" {
		fmt.Fprintf(w, "\nSummary: %s\n", s)
	}
	return nil
}

func printJobTable(w io.Writer, jobs []*job.Job) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"ID", "TYPE", "STATUS", "CREATED AT", "DURATION"}, "\t"))
	for _, j := range jobs {
		duration := "-"
		if j.Duration != nil {
			duration = (time.Duration(*j.Duration) * time.Millisecond).String()
		}
		fmt.Fprintln(tw, strings.Join([]string{
			j.ID.String(),
			string(j.Type),
			string(j.Status),
			j.CreatedAt.Format("2006-01-02 15:04:05"),
			duration,
		}, "\t"))
	}
	tw.Flush()
}
