package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newImportCmd(global *globalOptions) *cobra.Command {
	var job importJob

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one registration export (CSV or XLSX) for an event",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if job.EventID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--event-id must be a positive integer"))
			}
			job.Path = strings.TrimSpace(job.Path)
			if job.Path == "" {
				return withCode(exitUsage, fmt.Errorf("--file is required"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd.Context(), *global, []importJob{job})
		},
	}

	cmd.Flags().Int64Var(&job.EventID, "event-id", 0, "Event id (required)")
	cmd.Flags().StringVar(&job.EventName, "event-name", "", "Event name used in logs and the summary (default: stored name)")
	cmd.Flags().StringVar(&job.Path, "file", "", "Registration export to import (required)")

	return cmd
}
