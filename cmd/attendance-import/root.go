package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	logPeople   bool
	keepSource  bool
	notify      bool
	mappingPath string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "attendance-import",
		Short:         "Import event registration exports into the people and attendance tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.logPeople, "log-people", false, "Log one line per processed row")
	cmd.PersistentFlags().BoolVar(&opts.keepSource, "keep-source", false, "Keep the source table after importing (default deletes it)")
	cmd.PersistentFlags().BoolVar(&opts.notify, "notify", false, "Email a run summary to EMAIL_REPORT_TO")
	cmd.PersistentFlags().StringVar(&opts.mappingPath, "mapping", "", "YAML file overriding the column mapping")

	cmd.AddCommand(newImportCmd(&opts))
	cmd.AddCommand(newBatchCmd(&opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
