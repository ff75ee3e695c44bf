package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/lpmerge/internal/config"
	"github.com/nao1215/lpmerge/internal/mcpserver"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve merge tools over the Model Context Protocol",
		Long: `MCP starts a Model Context Protocol server on stdin and stdout.

The server offers three tools:
  parse_report    summarize one report file
  merge_reports   merge report files or directories and return the result
  find_hot_lines  merge reports and return the lines taking the most time

Logs go to stderr so they never mix with the protocol stream.`,
		Args: cobra.NoArgs,
		RunE: runMCPCmd,
	}

	cmd.Flags().IntP(config.FlagWorkers, "w", config.DefaultWorkers,
		"Number of reports parsed concurrently")

	return cmd
}

// runMCPCmd executes the mcp command.
func runMCPCmd(cmd *cobra.Command, _ []string) error {
	workers, err := cmd.Flags().GetInt(config.FlagWorkers)
	if err != nil {
		return err
	}
	if workers <= 0 {
		return config.ErrInvalidWorkers
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	s := mcpserver.New(getVersion(),
		mcpserver.WithLogger(logger),
		mcpserver.WithWorkers(workers),
	)
	return s.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}
