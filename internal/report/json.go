package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/lpmerge/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report with derived metrics in JSON format.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(NewJSONReport(report))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport is the JSON document for a report.
// Derived metrics are filled in here so consumers do not recompute them.
type JSONReport struct {
	model.Header

	// Sources lists the report files that were merged.
	Sources []string `json:"sources"`

	// TotalHits is the sum of hits over all executed lines.
	TotalHits int64 `json:"total_hits"`

	// Lines holds every line of the function in order.
	Lines []JSONLine `json:"lines"`
}

// JSONLine is one line of a JSONReport. The stats fields are omitted for
// lines without hits.
type JSONLine struct {
	Number       int      `json:"number"`
	Code         string   `json:"code"`
	Hits         *int64   `json:"hits,omitempty"`
	Elapsed      *float64 `json:"elapsed,omitempty"`
	PerHit       *float64 `json:"per_hit,omitempty"`
	RatioPercent *float64 `json:"ratio_percent,omitempty"`
	Severity     string   `json:"severity,omitempty"`
}

// NewJSONReport builds the JSON document for a report.
func NewJSONReport(report *model.Report) *JSONReport {
	out := &JSONReport{
		Header:    report.Header,
		Sources:   report.Sources,
		TotalHits: report.TotalHits(),
		Lines:     make([]JSONLine, len(report.Lines)),
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}

	for i, l := range report.Lines {
		jl := JSONLine{Number: l.Number, Code: l.Code}
		if l.HasHits() {
			hits, elapsed := l.Stats.Hits, l.Stats.Elapsed
			perHit, _ := report.PerHit(l)
			ratio, _ := report.RatioPercent(l)
			jl.Hits = &hits
			jl.Elapsed = &elapsed
			jl.PerHit = &perHit
			jl.RatioPercent = &ratio
			jl.Severity = model.SeverityFor(ratio).String()
		}
		out.Lines[i] = jl
	}
	return out
}
