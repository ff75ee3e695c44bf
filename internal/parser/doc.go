// Package parser reads line profiler text reports into model.Report values.
//
// A report consists of a fixed header (timer unit, total time, source file,
// function name and definition line), a column header whose "Line Contents"
// label fixes the column where source code starts, a separator rule and one
// row per source line up to the first blank line.
//
// Parse errors are returned as *MalformedHeaderError or *MalformedLineError
// so callers can report the file and line at fault.
package parser
