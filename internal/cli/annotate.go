package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Recompute the attribute columns on the master's primary table",
		Long: `Re-extract attribute updates from the change ledger and rewrite the
as-of value columns on the primary table. Annotation is idempotent:
with an unchanged master it rewrites identical columns, so it is safe
to run after editing the rules file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(rootOpts, cmd)
		},
	}
	return cmd
}

func runAnnotate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, _, err := newPipeline(opts)
	if err != nil {
		return err
	}

	results, err := p.Annotate(cmd.Context())
	if err != nil {
		_ = formatter.Error("ANNOTATE_FAILED", err.Error(), nil)
		return runFailure("annotate failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	for _, a := range results {
		fmt.Fprintf(formatter.Writer, "%-22s %d update(s) over %d row(s)\n",
			a.Column, a.Updates, a.Rows)
		for _, s := range a.Skipped {
			fmt.Fprintf(formatter.Writer, "  skipped day %d: %s\n", s.Day, s.Reason)
		}
	}
	return nil
}
