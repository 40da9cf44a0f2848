package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"opsledger/internal/config"
	"opsledger/internal/store"
)

// RunsResult holds runs command results.
type RunsResult struct {
	Runs []store.RunRecord `json:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List journaled pipeline runs",
		Long: `List journaled runs, most recent first. With a run id, show the
ledger entries that run skipped instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runRuns(rootOpts, runID, cmd)
		},
	}
	return cmd
}

func runRuns(opts *RootOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	journal, err := store.OpenJournal(cfg.Storage.JournalPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer journal.Close()

	if runID != "" {
		skipped, err := journal.SkippedForRun(cmd.Context(), runID)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list skipped entries", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(skipped)
		}
		if len(skipped) == 0 {
			fmt.Fprintln(formatter.Writer, "No skipped entries")
			return nil
		}
		for _, s := range skipped {
			fmt.Fprintf(formatter.Writer, "day %d [%s]: %s (%s)\n", s.Day, s.Kind, s.Description, s.Reason)
		}
		return nil
	}

	runs, err := journal.Runs(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunsResult{Runs: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs journaled")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-10s %-14s %s\n",
			r.StartedAt.Local().Format(time.RFC3339), r.Status, r.Snapshot, r.ID)
	}
	return nil
}
