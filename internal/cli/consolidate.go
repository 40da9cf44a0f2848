package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConsolidateResult holds consolidate command results.
type ConsolidateResult struct {
	Snapshot string   `json:"snapshot"`
	Written  []string `json:"written"`
	Excluded []string `json:"excluded,omitempty"`
}

// NewConsolidateCommand creates the consolidate command.
func NewConsolidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge the latest snapshot into the master without annotating",
		Long: `Merge the newest daily snapshot into the master store, replacing
incoming sheets wholesale and dropping graph sheets. The attribute
columns are left untouched; run "annotate" (or "run") afterwards.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsolidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runConsolidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, _, err := newPipeline(opts)
	if err != nil {
		return err
	}

	snapshot, res, err := p.Consolidate(cmd.Context())
	if err != nil {
		_ = formatter.Error("CONSOLIDATE_FAILED", err.Error(), nil)
		return runFailure("consolidate failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ConsolidateResult{
			Snapshot: snapshot,
			Written:  res.Written,
			Excluded: res.Excluded,
		})
	}

	fmt.Fprintf(formatter.Writer, "Consolidated %s\n", snapshot)
	for _, name := range res.Written {
		fmt.Fprintf(formatter.Writer, "  wrote    %s\n", name)
	}
	for _, name := range res.Excluded {
		fmt.Fprintf(formatter.Writer, "  excluded %s\n", name)
	}
	return nil
}
