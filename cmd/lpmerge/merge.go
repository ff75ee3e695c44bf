package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/lpmerge/internal/analyzer"
	"github.com/nao1215/lpmerge/internal/config"
	"github.com/nao1215/lpmerge/internal/database"
	"github.com/nao1215/lpmerge/internal/discover"
	"github.com/nao1215/lpmerge/internal/merge"
	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/pipeline"
	"github.com/nao1215/lpmerge/internal/report"
)

// noTargetMessage is printed when discovery finds no report file.
const noTargetMessage = "No target file detected."

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [paths...]",
		Short: "Merge line profiler reports of the same function",
		Long: `Merge reads line profiler reports from the given files and directories
and writes one report whose hits and times are the sums of the inputs.

Directories are searched recursively for .txt files. Files are merged in
the order they are found. Without arguments the current directory is used.

All reports must come from the same function and the same source code:
same timer unit, file, function name and definition line, the same line
numbers and line contents, and the same set of executed lines. Any
difference stops the merge and no output is written.

Examples:
  # Merge every report below the current directory into result.txt
  lpmerge merge

  # Merge two runs and write the result to stdout with colors
  lpmerge merge --color -o - run1.txt run2.txt

  # Write a Markdown report and a pprof profile
  lpmerge merge -f markdown -o merged.md --pprof merged.pb.gz runs/

  # Print the five hottest lines after merging
  lpmerge merge --top 5 runs/`,
		Args: cobra.ArbitraryArgs,
		RunE: runMergeCmd,
	}

	cmd.Flags().Bool(config.FlagColor, false,
		"Colorize rows by share of the total time")
	cmd.Flags().StringP(config.FlagOutput, "o", config.DefaultOutput,
		`Output file path ("-" for stdout)`)
	cmd.Flags().StringP(config.FlagFormat, "f", config.DefaultFormat,
		"Output format (text, json, markdown, html)")
	cmd.Flags().String("pprof", "",
		"Also write the merged report as a pprof profile to this file")
	cmd.Flags().IntP(config.FlagWorkers, "w", config.DefaultWorkers,
		"Number of reports parsed concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .lpmerge in current or home directory, then the XDG config dir)")
	cmd.Flags().Int("top", 0,
		"Print the N lines with the largest share of the time")
	cmd.Flags().Bool("no-history", false,
		"Do not record the merge in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, args, os.LookupEnv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runMerge(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from flags, the config file and the environment.
func buildConfig(cmd *cobra.Command, args []string, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if len(args) > 0 {
		cfg.Paths = args
	}
	if cfg.Color, err = flags.GetBool(config.FlagColor); err != nil {
		return nil, err
	}
	if cfg.Output, err = flags.GetString(config.FlagOutput); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString(config.FlagFormat); err != nil {
		return nil, err
	}
	if cfg.PprofFile, err = flags.GetString("pprof"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt(config.FlagWorkers); err != nil {
		return nil, err
	}
	if cfg.Top, err = flags.GetInt("top"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue without one.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(cf, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(lookupEnv, flags.Changed); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runMerge discovers, merges and writes the reports described by cfg.
// The target list goes to stdout unless the report itself does.
func runMerge(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	outputs, err := buildOutputs(cfg, stdout)
	if err != nil {
		return err
	}

	if err := discover.ValidatePatterns(cfg.Exclude); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var recorder pipeline.Recorder
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("merge history disabled", "error", err)
		} else {
			defer db.Close()
			recorder = db
		}
	}

	announce := stdout
	if cfg.Output == pipeline.StdoutPath {
		announce = stderr
	}

	p := pipeline.DefaultPipeline(pipeline.MergeConfig{
		Discover: discover.Options{
			Extensions: cfg.Extensions,
			Exclude:    cfg.Exclude,
			Skip:       outputPaths(cfg),
			Logger:     logger,
		},
		Workers:  cfg.Workers,
		Announce: announce,
		Outputs:  outputs,
		Recorder: recorder,
		Logger:   logger,
	})

	job := pipeline.NewJob(cfg.Paths...)
	if err := p.Execute(ctx, job); err != nil {
		if errors.Is(err, merge.ErrNoTarget) {
			fmt.Fprintln(stdout, noTargetMessage)
			return nil
		}
		return err
	}

	for _, path := range job.Written {
		if path != pipeline.StdoutPath {
			logger.Info("merged report written", "output", path)
		}
	}
	if job.HistoryID != 0 {
		logger.Debug("merge recorded", "id", job.HistoryID)
	}

	if cfg.Top > 0 {
		return printHotLines(stdout, job.Merged, cfg.Top)
	}
	return nil
}

// buildOutputs creates the destinations of the report and the optional profile.
func buildOutputs(cfg *config.Config, stdout io.Writer) ([]*pipeline.Output, error) {
	newWriter, err := writerFactory(cfg.Format, cfg.Color)
	if err != nil {
		return nil, err
	}

	primary := pipeline.NewOutput(cfg.Output, stdout, newWriter)
	if cfg.Functions != nil {
		primary.WithOverride(functionOverride(cfg))
	}
	outputs := []*pipeline.Output{primary}

	if cfg.PprofFile != "" {
		outputs = append(outputs, pipeline.NewOutput(cfg.PprofFile, stdout, func(w io.Writer) report.Writer {
			return report.NewPprofWriter(w)
		}))
	}
	return outputs, nil
}

// functionOverride applies the config file's per-function output settings.
func functionOverride(cfg *config.Config) pipeline.Override {
	return func(r *model.Report) (string, pipeline.WriterFactory, bool) {
		fc, ok := cfg.Functions.ForFunction(r.FunctionName)
		if !ok {
			return "", nil, false
		}
		path := cfg.Output
		if fc.Output != "" {
			path = fc.Output
		}
		format := cfg.Format
		if fc.Format != "" {
			format = fc.Format
		}
		newWriter, err := writerFactory(format, cfg.Color)
		if err != nil {
			return "", nil, false
		}
		return path, newWriter, true
	}
}

// writerFactory returns a factory of report writers for a format name.
func writerFactory(name string, colorize bool) (pipeline.WriterFactory, error) {
	format, err := report.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return func(w io.Writer) report.Writer {
		writer, err := report.NewWriter(format, w, colorize)
		if err != nil {
			// ParseFormat only returns formats NewWriter knows.
			panic(err)
		}
		return writer
	}, nil
}

// outputPaths lists every file the run may write, so discovery never
// takes an earlier result as input.
func outputPaths(cfg *config.Config) []string {
	var paths []string
	candidates := append([]string{cfg.Output, cfg.PprofFile}, cfg.Functions.Outputs()...)
	for _, p := range candidates {
		if p != "" && p != pipeline.StdoutPath {
			paths = append(paths, p)
		}
	}
	return paths
}

// printHotLines prints the top lines of the merged report as a table.
func printHotLines(w io.Writer, r *model.Report, topN int) error {
	lines := analyzer.TopLines(r, topN)
	if len(lines) == 0 {
		fmt.Fprintln(w, "No line was executed.")
		return nil
	}

	fmt.Fprintf(w, "\nTop %d lines of %s:\n", len(lines), r.FunctionName)
	table := tablewriter.NewWriter(w)
	table.Header("Line", "Hits", "Per Hit", "% Time", "Severity", "Code")
	for _, l := range lines {
		if err := table.Append(
			fmt.Sprintf("%d", l.Number),
			humanize.Comma(l.Hits),
			fmt.Sprintf("%.1f", l.PerHit),
			fmt.Sprintf("%.1f", l.RatioPercent),
			l.Severity.String(),
			strings.TrimSpace(l.Code),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
