package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consolidate the latest snapshot and annotate the master",
		Long: `Run the full pipeline: select the newest daily snapshot in the data
folder, merge it into the master store, extract attribute updates from
the change ledger, and write the as-of value columns onto the primary
table. Skipped ledger entries and the run outcome are journaled.

Example:
  opsledger run
  opsledger run --config ./opsledger.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, cmd)
		},
	}
	return cmd
}

func runRun(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, _, err := newPipeline(opts)
	if err != nil {
		return err
	}

	formatter.VerboseLog("starting pipeline run")
	res, err := p.Run(cmd.Context())
	if err != nil {
		_ = formatter.Error("RUN_FAILED", err.Error(), nil)
		return runFailure("run failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}

	fmt.Fprintf(formatter.Writer, "Consolidated %s (%d sheet(s) written, %d excluded)\n",
		res.Snapshot, len(res.Written), len(res.Excluded))
	for _, a := range res.Annotations {
		fmt.Fprintf(formatter.Writer, "  %-22s %d update(s) over %d row(s)\n",
			a.Column, a.Updates, a.Rows)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(formatter.Writer, "Skipped %d ledger entr(ies):\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(formatter.Writer, "  day %d [%s]: %s\n", s.Day, s.Kind, s.Reason)
		}
	}
	if res.Synced {
		fmt.Fprintln(formatter.Writer, "Synced master to remote")
	}
	fmt.Fprintf(formatter.Writer, "Master fingerprint: %s\n", res.Fingerprint)
	return nil
}
