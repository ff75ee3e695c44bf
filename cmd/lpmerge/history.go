package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/lpmerge/internal/config"
	"github.com/nao1215/lpmerge/internal/database"
	"github.com/nao1215/lpmerge/internal/report"
)

// digestLength is the number of source digest characters shown in listings.
const digestLength = 12

// NewHistoryCmd creates the history command.
// It lists merges recorded by the merge command and renders stored results.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [function]",
		Short: "Show recorded merges",
		Long: `History shows the merges recorded by 'lpmerge merge'.

Without arguments it lists every function with recorded merges. With a
function name (or a file:function:line key) it lists that function's
merges, newest first. Use --show to render a recorded merge again.

Examples:
  # List all functions in the history
  lpmerge history

  # List the merges of one function
  lpmerge history handle_request

  # Render merge 12 with colors
  lpmerge history --show 12 --color

  # Render merge 12 as Markdown
  lpmerge history --show 12 -f markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64("show", 0,
		"Render the recorded merge with this ID")
	cmd.Flags().Bool("color", false,
		"Colorize rows by share of the total time (with --show)")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format with --show (text, json, markdown, html)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	colorize, err := cmd.Flags().GetBool("color")
	if err != nil {
		return err
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var format report.Format
	if showID != 0 {
		if len(args) > 0 {
			return errors.New("--show cannot be combined with a function name")
		}
		if format, err = report.ParseFormat(formatName); err != nil {
			return fmt.Errorf("configuration error: %w", config.ErrInvalidFormat)
		}
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case showID != 0:
		return showMerge(ctx, db, out, showID, format, colorize)
	case len(args) == 1:
		return listMerges(ctx, db, out, args[0])
	default:
		return listFunctions(ctx, db, out)
	}
}

// listFunctions lists every function with recorded merges.
func listFunctions(ctx context.Context, db *database.HistoryDB, w io.Writer) error {
	functions, err := db.ListFunctions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list functions: %w", err)
	}

	if len(functions) == 0 {
		fmt.Fprintln(w, "No merges found in the history.")
		fmt.Fprintln(w, "\nUse 'lpmerge merge' to merge reports and record the result.")
		return nil
	}

	fmt.Fprintf(w, "Recorded functions (%d):\n\n", len(functions))
	table := tablewriter.NewWriter(w)
	table.Header("Function", "Source", "Merges", "Last Merged")
	for _, f := range functions {
		if err := table.Append(
			f.FunctionName,
			f.SourceFile+":"+strconv.Itoa(f.DefLine),
			strconv.Itoa(f.Merges),
			humanize.Time(f.LastMerged),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nUse 'lpmerge history <function>' to see the merges of a function.")
	return nil
}

// listMerges lists the recorded merges of one function.
func listMerges(ctx context.Context, db *database.HistoryDB, w io.Writer, function string) error {
	merges, err := db.GetHistory(ctx, function)
	if err != nil {
		return fmt.Errorf("failed to get merge history: %w", err)
	}

	if len(merges) == 0 {
		fmt.Fprintf(w, "No merges found for %s\n", function)
		return nil
	}

	fmt.Fprintf(w, "Merges of %s (%d):\n\n", function, len(merges))
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Merged", "Inputs", "Total Time", "Hits", "Source Digest")
	for _, m := range merges {
		if err := table.Append(
			strconv.FormatInt(m.ID, 10),
			humanize.Time(m.Timestamp),
			formatInputs(m.Inputs),
			fmt.Sprintf("%g s", m.TotalTime),
			humanize.Comma(m.TotalHits),
			shortDigest(m.SourceDigest),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nUse 'lpmerge history --show <id>' to render a merge.")
	return nil
}

// showMerge renders a recorded merge.
func showMerge(ctx context.Context, db *database.HistoryDB, w io.Writer, id int64, format report.Format, colorize bool) error {
	r, err := db.GetReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get merge %d: %w", id, err)
	}
	if r == nil {
		return fmt.Errorf("merge with ID %d not found", id)
	}

	writer, err := report.NewWriter(format, w, colorize)
	if err != nil {
		return err
	}
	_, err = writer.Write(r)
	return err
}

// formatInputs summarizes the input files of a merge.
func formatInputs(inputs []string) string {
	const shown = 2
	switch {
	case len(inputs) == 0:
		return "-"
	case len(inputs) <= shown:
		return strings.Join(inputs, ", ")
	default:
		return fmt.Sprintf("%s (+%d more)", strings.Join(inputs[:shown], ", "), len(inputs)-shown)
	}
}

// shortDigest shortens a source digest for display.
func shortDigest(digest string) string {
	if len(digest) > digestLength {
		return digest[:digestLength]
	}
	return digest
}
