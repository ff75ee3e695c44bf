package report

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/lpmerge/internal/analyzer"
	"github.com/nao1215/lpmerge/internal/model"
)

// pieChartLines is the number of hottest lines shown in the pie chart.
const pieChartLines = 5

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeLines(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the function identity and totals.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Line Profile: " + report.FunctionName)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"File", "`" + report.SourceFile + "`"},
			{"Function", "`" + report.FunctionName + "`"},
			{"Defined at", "line " + strconv.Itoa(report.DefLine)},
			{"Timer unit", formatFloat(report.TimerUnit) + " s"},
			{"Total time", formatFloat(report.TotalTime) + " s"},
			{"Total hits", strconv.FormatInt(report.TotalHits(), 10)},
			{"Merged reports", strconv.Itoa(len(report.Sources))},
		},
	})
	md.PlainText("")
}

// writeSummary writes the severity distribution, pie chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := analyzer.SeverityCounts(report)
	rows := make([][]string, 0, len(model.Severities()))
	for _, sev := range model.Severities() {
		rows = append(rows, []string{severityTitle(sev), strconv.Itoa(counts[sev])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Lines"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the hottest lines.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	hot := analyzer.TopLines(report, pieChartLines)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Time by Line"),
		piechart.WithShowData(true),
	)

	added := 0
	for _, l := range hot {
		ticks := uint64(math.Round(l.Elapsed))
		if ticks == 0 {
			continue
		}
		chart.LabelAndIntValue("line "+strconv.Itoa(l.Number), ticks)
		added++
	}
	if added == 0 {
		return
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the heaviest line.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	worst, ok := analyzer.WorstSeverity(report)
	if !ok {
		md.Tip("No line was executed.")
		md.PlainText("")
		return
	}

	top := analyzer.TopLines(report, 1)[0]
	switch worst {
	case model.SeverityCritical:
		md.Cautionf("Line %d takes %.1f%% of the function time.", top.Number, top.RatioPercent)
	case model.SeverityVeryHeavy, model.SeverityHeavy:
		md.Warningf("Line %d takes %.1f%% of the function time.", top.Number, top.RatioPercent)
	case model.SeverityLightHeavy:
		md.Importantf("Line %d takes %.1f%% of the function time.", top.Number, top.RatioPercent)
	default:
		bound := strconv.FormatFloat(model.SeverityLightHeavy.LowerBound(), 'g', -1, 64)
		md.Note("Time is spread evenly; no line takes " + bound + "% or more.")
	}
	md.PlainText("")
}

// writeLines writes the full line table.
func (w *MarkdownWriter) writeLines(md *markdown.Markdown, report *model.Report) {
	md.H2("Lines")
	md.PlainText("")

	rows := make([][]string, len(report.Lines))
	for i, l := range report.Lines {
		code := "`" + escapeTableCell(l.Code) + "`"
		if strings.TrimSpace(l.Code) == "" {
			code = ""
		}
		if !l.HasHits() {
			rows[i] = []string{strconv.Itoa(l.Number), "", "", "", "", "", code}
			continue
		}
		perHit, _ := report.PerHit(l)
		ratio, _ := report.RatioPercent(l)
		rows[i] = []string{
			strconv.Itoa(l.Number),
			strconv.FormatInt(l.Stats.Hits, 10),
			formatFloat(l.Stats.Elapsed),
			strconv.FormatFloat(perHit, 'f', 1, 64),
			strconv.FormatFloat(ratio, 'f', 1, 64),
			severityTitle(model.SeverityFor(roundTenth(ratio))),
			code,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Line", "Hits", "Time", "Per Hit", "% Time", "Severity", "Code"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Sources) > 0 {
		md.H2("Sources")
		md.PlainText("")
		md.BulletList(report.Sources...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [lpmerge](https://github.com/nao1215/lpmerge)*")
}

// severityTitle returns the display title of a severity, e.g. "Very-Heavy".
func severityTitle(sev model.Severity) string {
	return cases.Title(language.English).String(sev.String())
}

// escapeTableCell keeps pipes in source code from splitting table cells.
func escapeTableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
