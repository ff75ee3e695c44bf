// Package model defines the data structures shared by the parser, the merge
// engine and the report writers.
//
// This package contains the following main types:
//   - Report: one line profiler report for one function
//   - Header: the identity of the profiled function and its total time
//   - Line and LineStats: per-line source text and hit data
//   - Severity: the ratio bands used to highlight hot lines
//
// Derived metrics (time per hit, percentage of total time) are methods on
// Report and are always computed from the stored counters, never stored.
package model
