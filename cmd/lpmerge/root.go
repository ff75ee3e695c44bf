package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/lpmerge/internal/log"
)

// NewRootCmd creates the root command for lpmerge.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lpmerge",
		Short: "Merge line profiler reports",
		Long: `lpmerge merges line profiler reports taken from several runs of the
same function into one report. Hits and time are summed per line, and
per-hit time and share of the total are recomputed from the sums.

Reports are only merged when they describe the same function and the same
source code; any inconsistency stops the merge and nothing is written.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", log.FormatText, "Log record format (text, json)")

	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the stderr logger selected by the global log flags.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			format = log.FormatText
		}
	}
	return log.New(cmd.ErrOrStderr(), format, getVerboseFlag(cmd))
}
