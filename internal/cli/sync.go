package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	To string
}

// SyncResult holds sync command results.
type SyncResult struct {
	Remote string `json:"remote"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the master store to a remote store",
		Long: `Copy every sheet of the master store into the remote store, replacing
its content wholesale. Remote sheets absent from the master are
deleted. The target defaults to the configured remote; the extension
selects the backend (.xlsx or a SQLite database path).

Example:
  opsledger sync --to /mnt/share/Master.xlsx
  opsledger sync --to ./mirror.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "remote store path (defaults to config remote)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, cfg, err := newPipeline(opts.RootOptions)
	if err != nil {
		return err
	}

	target := opts.To
	if target == "" {
		target = cfg.Remote
	}
	if target == "" {
		return NewExitError(ExitCommandError, "no remote configured: pass --to or set remote in config")
	}

	if err := p.SyncRemote(cmd.Context(), target); err != nil {
		_ = formatter.Error("SYNC_FAILED", err.Error(), nil)
		return runFailure("sync failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SyncResult{Remote: target})
	}
	fmt.Fprintf(formatter.Writer, "Synced master to %s\n", target)
	return nil
}
