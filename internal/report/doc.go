// Package report renders merged line profiler reports.
//
// This package contains writers for different output formats:
//   - TextWriter: the line profiler layout, optionally colored by severity
//   - JSONWriter: structured JSON with derived metrics for tool integration
//   - MarkdownWriter: a shareable document with summary tables
//   - HTMLWriter: a standalone HTML page
//   - PprofWriter: a pprof profile for "go tool pprof"
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
