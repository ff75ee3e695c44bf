package model

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Header identifies the profiled function and carries the report-wide totals.
// TimerUnit, SourceFile, FunctionName and DefLine together identify
// "the same profiled function"; TotalTime is an additive accumulator.
type Header struct {
	// TimerUnit is the number of seconds per raw tick.
	TimerUnit float64 `json:"timer_unit"`

	// TotalTime is the function's overall time as recorded in the report header.
	// Merging sums it; it is never rescaled by TimerUnit.
	TotalTime float64 `json:"total_time"`

	// SourceFile is the path of the profiled source as recorded in the header.
	SourceFile string `json:"source_file"`

	// FunctionName is the profiled function.
	FunctionName string `json:"function_name"`

	// DefLine is the line number at which the function is defined.
	DefLine int `json:"def_line"`
}

// SameFunction reports whether h and other describe the same profiled function.
func (h Header) SameFunction(other Header) bool {
	return h.TimerUnit == other.TimerUnit &&
		h.SourceFile == other.SourceFile &&
		h.FunctionName == other.FunctionName &&
		h.DefLine == other.DefLine
}

// LineStats holds the raw counters of an executed line.
// Hits is at least 1 and Elapsed is a non-negative tick count.
type LineStats struct {
	Hits    int64   `json:"hits"`
	Elapsed float64 `json:"elapsed"`
}

// Line is one source line of the profiled function.
//
// Stats is nil when the line was never executed (blank line, comment,
// unreached branch). Keeping both counters behind a single pointer means a
// line can never carry a hit count without an elapsed time or vice versa.
type Line struct {
	// Number is the 1-based source line number.
	Number int `json:"number"`

	// Code is the verbatim source text, including leading whitespace.
	Code string `json:"code"`

	// Stats is the hit data, or nil for a line without hits.
	Stats *LineStats `json:"stats,omitempty"`
}

// HasHits reports whether the line carries hit data.
func (l Line) HasHits() bool {
	return l.Stats != nil
}

// Report is the normalized form of one line profiler report for one function.
// A merge produces a new Report; reports are never modified once built.
type Report struct {
	Header

	// Lines are ordered by ascending, contiguous line number.
	Lines []Line `json:"lines"`

	// Sources lists the report files that contributed to this report,
	// in the order they were merged.
	Sources []string `json:"sources,omitempty"`
}

// Origin returns a display name for the files this report was built from.
func (r *Report) Origin() string {
	if len(r.Sources) == 0 {
		return "<unknown>"
	}
	return strings.Join(r.Sources, "+")
}

// Line returns the line with the given number.
func (r *Report) Line(number int) (Line, bool) {
	if len(r.Lines) == 0 {
		return Line{}, false
	}
	// Lines are contiguous, so the index follows from the first number.
	idx := number - r.Lines[0].Number
	if idx >= 0 && idx < len(r.Lines) && r.Lines[idx].Number == number {
		return r.Lines[idx], true
	}
	for _, l := range r.Lines {
		if l.Number == number {
			return l, true
		}
	}
	return Line{}, false
}

// Numbers returns the line numbers of the report in order.
func (r *Report) Numbers() []int {
	numbers := make([]int, len(r.Lines))
	for i, l := range r.Lines {
		numbers[i] = l.Number
	}
	return numbers
}

// PerHit returns the average elapsed ticks per hit of a line.
func (r *Report) PerHit(l Line) (float64, bool) {
	if l.Stats == nil || l.Stats.Hits == 0 {
		return 0, false
	}
	return l.Stats.Elapsed / float64(l.Stats.Hits), true
}

// RatioPercent returns the share of the function's total time spent on a line.
// A report with zero total time attributes 0% to every line.
func (r *Report) RatioPercent(l Line) (float64, bool) {
	if l.Stats == nil {
		return 0, false
	}
	if r.TotalTime == 0 {
		return 0, true
	}
	return l.Stats.Elapsed * r.TimerUnit / r.TotalTime * 100, true
}

// TotalHits returns the sum of hits over all executed lines.
func (r *Report) TotalHits() int64 {
	var total int64
	for _, l := range r.Lines {
		if l.Stats != nil {
			total += l.Stats.Hits
		}
	}
	return total
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	out := &Report{
		Header:  r.Header,
		Lines:   make([]Line, len(r.Lines)),
		Sources: append([]string(nil), r.Sources...),
	}
	for i, l := range r.Lines {
		out.Lines[i] = Line{Number: l.Number, Code: l.Code}
		if l.Stats != nil {
			stats := *l.Stats
			out.Lines[i].Stats = &stats
		}
	}
	return out
}

// SourceDigest returns a SHA3-256 digest of the line numbers and code text.
// Two reports with the same digest were captured against the same source snapshot.
func (r *Report) SourceDigest() string {
	h := sha3.New256()
	for _, l := range r.Lines {
		h.Write([]byte(strconv.Itoa(l.Number)))
		h.Write([]byte{0})
		h.Write([]byte(l.Code))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
