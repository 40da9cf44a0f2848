package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out string
}

// ExportResult holds export command results.
type ExportResult struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attribute series to a Parquet file",
		Long: `Write every attribute's extracted updates and per-day projections to
a Parquet file for downstream analysis.

Example:
  opsledger export --out ./series.parquet`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "output Parquet file path (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, _, err := newPipeline(opts.RootOptions)
	if err != nil {
		return err
	}

	n, err := p.Export(cmd.Context(), opts.Out)
	if err != nil {
		_ = formatter.Error("EXPORT_FAILED", err.Error(), nil)
		return runFailure("export failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ExportResult{Path: opts.Out, Records: n})
	}
	fmt.Fprintf(formatter.Writer, "Wrote %d record(s) to %s\n", n, opts.Out)
	return nil
}
