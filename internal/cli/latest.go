package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LatestResult holds latest command results.
type LatestResult struct {
	Snapshot string `json:"snapshot"`
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the snapshot the next run would consolidate",
		Long: `Scan the data folder for daily snapshot files and print the one with
the highest day number. The master workbook and editor lock files are
never candidates.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(rootOpts, cmd)
		},
	}
	return cmd
}

func runLatest(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, _, err := newPipeline(opts)
	if err != nil {
		return err
	}

	name, err := p.Latest()
	if err != nil {
		_ = formatter.Error("NO_SNAPSHOT", err.Error(), nil)
		return runFailure("no snapshot found", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(LatestResult{Snapshot: name})
	}
	fmt.Fprintln(formatter.Writer, name)
	return nil
}
