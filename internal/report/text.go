package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/lpmerge/internal/model"
)

const (
	// Narrowest column widths, not counting the separating space.
	minHitsWidth = 9
	minTimeWidth = 10
	minRateWidth = 8

	contentsHeader = "  Line Contents"
)

// TextWriter outputs reports in the line profiler text layout.
// Uncolored output can be parsed and merged again.
type TextWriter struct {
	baseWriter

	// colorize wraps the stats columns of executed lines in ANSI styles.
	colorize bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithColor enables or disables severity highlighting.
func WithColor(enabled bool) TextWriterOption {
	return func(w *TextWriter) {
		w.colorize = enabled
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in the line profiler text layout.
func (w *TextWriter) Write(report *model.Report) (int, error) {
	return io.WriteString(w.output, Render(report, w.colorize))
}

// Render formats a report in the line profiler layout.
//
// Per-hit and ratio are recomputed from the counters and rounded to one
// decimal. With colorize, the stats columns of every executed line are
// wrapped in the style of its severity; the code column is never styled.
func Render(r *model.Report, colorize bool) string {
	cols := columnWidths(r)

	var b strings.Builder
	fmt.Fprintf(&b, "Timer unit: %s s\n\n", formatFloat(r.TimerUnit))
	fmt.Fprintf(&b, "Total time: %s s\n", formatFloat(r.TotalTime))
	fmt.Fprintf(&b, "File: %s\n", r.SourceFile)
	fmt.Fprintf(&b, "Function: %s at line %d\n\n", r.FunctionName, r.DefLine)

	b.WriteString(cols.format("Line #", "Hits", "Time", "Per Hit", "% Time"))
	b.WriteString(contentsHeader + "\n")
	b.WriteString(strings.Repeat("=", cols.total()+len(contentsHeader)))
	b.WriteByte('\n')

	for _, l := range r.Lines {
		b.WriteString(renderStats(r, l, cols, colorize))
		b.WriteString("  ")
		b.WriteString(l.Code)
		b.WriteByte('\n')
	}

	return b.String()
}

// columns holds the widths of the numeric columns, each including at
// least one separating space.
type columns struct {
	hits, time, perHit, ratio int
}

func (c columns) total() int {
	return 6 + c.hits + c.time + c.perHit + c.ratio
}

func (c columns) format(number, hits, time, perHit, ratio string) string {
	return fmt.Sprintf("%6s%*s%*s%*s%*s", number, c.hits, hits, c.time, time, c.perHit, perHit, c.ratio, ratio)
}

// lineStats returns the formatted counters and derived values of an executed line.
func lineStats(r *model.Report, l model.Line) (hits, elapsed, perHit, ratio string, rounded float64) {
	p, _ := r.PerHit(l)
	q, _ := r.RatioPercent(l)
	rounded = roundTenth(q)
	return strconv.FormatInt(l.Stats.Hits, 10),
		formatFloat(l.Stats.Elapsed),
		strconv.FormatFloat(roundTenth(p), 'f', 1, 64),
		strconv.FormatFloat(rounded, 'f', 1, 64),
		rounded
}

// renderStats formats the numeric columns of one line.
func renderStats(r *model.Report, l model.Line, cols columns, colorize bool) string {
	number := strconv.Itoa(l.Number)
	if !l.HasHits() {
		return cols.format(number, "", "", "", "")
	}

	hits, elapsed, perHit, ratio, rounded := lineStats(r, l)
	stats := cols.format(number, hits, elapsed, perHit, ratio)
	if !colorize {
		return stats
	}
	return styleFor(model.SeverityFor(rounded)).Sprint(stats)
}

// columnWidths sizes every numeric column to its widest value. Lines
// without hits leave their columns blank and are skipped.
func columnWidths(r *model.Report) columns {
	hitsWidth, timeWidth := minHitsWidth, minTimeWidth
	perHitWidth, ratioWidth := minRateWidth, minRateWidth
	for _, l := range r.Lines {
		if !l.HasHits() {
			continue
		}
		hits, elapsed, perHit, ratio, _ := lineStats(r, l)
		hitsWidth = max(hitsWidth, len(hits))
		timeWidth = max(timeWidth, len(elapsed))
		perHitWidth = max(perHitWidth, len(perHit))
		ratioWidth = max(ratioWidth, len(ratio))
	}
	return columns{
		hits:   hitsWidth + 1,
		time:   timeWidth + 1,
		perHit: perHitWidth + 1,
		ratio:  ratioWidth + 1,
	}
}

// styleFor maps a severity to its terminal style.
// Colors are forced on so output redirected to a file keeps them.
func styleFor(sev model.Severity) *color.Color {
	var c *color.Color
	switch sev {
	case model.SeverityCritical:
		c = color.New(color.FgWhite, color.BgRed, color.Bold)
	case model.SeverityVeryHeavy:
		c = color.New(color.FgRed, color.Bold)
	case model.SeverityHeavy:
		c = color.New(color.FgYellow, color.Bold)
	case model.SeverityLightHeavy:
		c = color.New(color.FgYellow)
	case model.SeverityNormal:
		c = color.New(color.FgGreen)
	default:
		c = color.New(color.FgCyan)
	}
	c.EnableColor()
	return c
}

// formatFloat formats v with the shortest representation that parses back
// to v. The result always carries a decimal point or an exponent.
func formatFloat(v float64) string {
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
