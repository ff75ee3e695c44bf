package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/lpmerge/internal/model"
)

// Writer defines the interface for report output.
// Implementations render a merged report in one format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)
}

// Format names an output format selectable from the command line.
type Format string

const (
	// FormatText is the line profiler layout, re-mergeable by the parser.
	FormatText Format = "text"
	// FormatJSON is structured output for tool integration.
	FormatJSON Format = "json"
	// FormatMarkdown is a document with summary tables and a pie chart.
	FormatMarkdown Format = "markdown"
	// FormatHTML is a standalone HTML page.
	FormatHTML Format = "html"
)

// Formats returns every supported output format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatMarkdown, FormatHTML}
}

// ParseFormat converts a user supplied format name.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats() {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// NewWriter creates the Writer for a format. colorize only affects FormatText.
func NewWriter(format Format, output io.Writer, colorize bool) (Writer, error) {
	switch format {
	case FormatText:
		return NewTextWriter(output, WithColor(colorize)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatHTML:
		return NewHTMLWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
