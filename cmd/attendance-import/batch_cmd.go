package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// importJob is one event of a batch manifest.
type importJob struct {
	EventID   int64  `json:"event_id"`
	Path      string `json:"csv_path"`
	EventName string `json:"event_name,omitempty"`
}

func newBatchCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Import every event of a JSON manifest read from stdin",
		Long: `Reads a JSON array such as
  [{"event_id": 12, "csv_path": "/tmp/fall-mixer.csv", "event_name": "Fall Mixer"}]
from stdin and imports the events one after another. The first failing event stops the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := parseManifest(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no events to process")
				return nil
			}
			return runJobs(cmd.Context(), *global, jobs)
		},
	}
}

// parseManifest decodes the batch manifest. Blank input is an empty batch; a missing event
// name defaults to "Event <id>".
func parseManifest(r io.Reader) ([]importJob, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("read manifest: %w", err))
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	var jobs []importJob
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("invalid manifest: %w", err))
	}
	for i := range jobs {
		j := &jobs[i]
		if j.EventID <= 0 {
			return nil, withCode(exitValidation, fmt.Errorf("manifest entry %d: event_id must be positive", i))
		}
		j.Path = strings.TrimSpace(j.Path)
		if j.Path == "" {
			return nil, withCode(exitValidation, fmt.Errorf("manifest entry %d: csv_path is required", i))
		}
		if strings.TrimSpace(j.EventName) == "" {
			j.EventName = fmt.Sprintf("Event %d", j.EventID)
		}
	}
	return jobs, nil
}
