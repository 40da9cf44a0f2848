// Package cli implements the opsledger command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"opsledger/internal/config"
	"opsledger/internal/ledger"
	"opsledger/internal/pipeline"
	"opsledger/internal/rules"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Rules   string
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the opsledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "opsledger",
		Short: "Consolidate daily snapshots and project ledger attributes",
		Long: `opsledger merges daily spreadsheet snapshots into a master store,
extracts attribute updates from the free-text change ledger, and
projects the value in effect onto every day of the primary table.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Rules, "rules", "", "path to CUE rules file (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConsolidateCommand(opts))
	cmd.AddCommand(NewAnnotateCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds an output formatter bound to the command's
// writers.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newPipeline loads the configuration and rule set and assembles the
// pipeline shared by every subcommand.
func newPipeline(opts *RootOptions) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	rulesPath := cfg.Rules
	if opts.Rules != "" {
		rulesPath = opts.Rules
	}
	var ruleSet []ledger.Rule
	if rulesPath != "" {
		ruleSet, err = rules.LoadFile(rulesPath)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to load rules", err)
		}
	}

	return pipeline.New(cfg, ruleSet, newLogger(opts, cfg)), cfg, nil
}

// newLogger configures logging from the verbose flag and config.
func newLogger(opts *RootOptions, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// runFailure maps a pipeline error to the right exit code: missing
// inputs are command errors, everything else is a run failure.
func runFailure(message string, err error) *ExitError {
	if pipeline.IsNotFound(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}
