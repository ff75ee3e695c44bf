package parser

import "fmt"

// MalformedHeaderError is returned when the fixed report header cannot be
// matched. The report cannot be read any further once this happens.
type MalformedHeaderError struct {
	// File is the report being parsed.
	File string

	// Line is the 1-based line number of the offending header line.
	Line int

	// Text is the raw header line, empty if the report ended early.
	Text string

	// Reason describes which part of the header was expected.
	Reason string
}

// Error implements the error interface.
func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("%s:%d: malformed header: %s (got %q)", e.File, e.Line, e.Reason, e.Text)
}

// MalformedLineError is returned when a table row cannot be parsed.
type MalformedLineError struct {
	// File is the report being parsed.
	File string

	// Line is the 1-based line number of the row within the report file.
	Line int

	// Text is the raw row.
	Text string

	// Reason describes what was wrong with the row.
	Reason string
}

// Error implements the error interface.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("%s:%d: malformed line: %s (got %q)", e.File, e.Line, e.Reason, e.Text)
}
