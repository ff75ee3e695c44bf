package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/lpmerge/internal/model"
)

// ContentsLabel is the column header label marking where source code starts.
const ContentsLabel = "Line Contents"

// headerLines is the number of lines before the first table row:
// five header lines, a blank line, the column header and the separator rule.
const headerLines = 8

var (
	timerUnitPattern = regexp.MustCompile(`^Timer unit: (\S+) s$`)
	totalTimePattern = regexp.MustCompile(`^Total time: (\S+) s$`)
	filePattern      = regexp.MustCompile(`^File: (\S+)$`)
	functionPattern  = regexp.MustCompile(`^Function: (\S+) at line (\d+)$`)
)

// ParseFile reads and parses the report at path.
func ParseFile(path string) (*model.Report, error) {
	f, err := os.Open(path) //nolint:gosec // Report paths are chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	return Parse(path, f)
}

// Parse parses one line profiler report. name identifies the report in
// errors and becomes the only entry of the report's Sources.
//
// Only hits and elapsed ticks are taken from each row. The per-hit and
// ratio columns are checked for being numeric and then dropped, because
// they are recomputed from the counters whenever they are displayed.
func Parse(name string, r io.Reader) (*model.Report, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	header, err := parseHeader(name, lines)
	if err != nil {
		return nil, err
	}

	offset := strings.Index(lines[6], ContentsLabel)
	if offset < 0 {
		return nil, &MalformedHeaderError{
			File:   name,
			Line:   7,
			Text:   lines[6],
			Reason: fmt.Sprintf("column header without %q label", ContentsLabel),
		}
	}

	report := &model.Report{
		Header:  header,
		Sources: []string{name},
	}

	for i := headerLines; i < len(lines); i++ {
		raw := lines[i]
		if strings.TrimSpace(raw) == "" {
			break
		}

		line, err := parseRow(raw, offset)
		if err != nil {
			return nil, &MalformedLineError{File: name, Line: i + 1, Text: raw, Reason: err.Error()}
		}

		if n := len(report.Lines); n > 0 && line.Number != report.Lines[n-1].Number+1 {
			return nil, &MalformedLineError{
				File:   name,
				Line:   i + 1,
				Text:   raw,
				Reason: fmt.Sprintf("line number %d does not follow %d", line.Number, report.Lines[n-1].Number),
			}
		}
		report.Lines = append(report.Lines, line)
	}

	return report, nil
}

// readLines splits the input into lines without their line terminators.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

// parseHeader matches the fixed five-line header and the blank line after it.
func parseHeader(name string, lines []string) (model.Header, error) {
	var header model.Header

	line := func(idx int) string {
		if idx < len(lines) {
			return lines[idx]
		}
		return ""
	}
	fail := func(idx int, reason string) error {
		return &MalformedHeaderError{File: name, Line: idx + 1, Text: line(idx), Reason: reason}
	}

	m := timerUnitPattern.FindStringSubmatch(line(0))
	if m == nil {
		return header, fail(0, `expected "Timer unit: <float> s"`)
	}
	unit, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return header, fail(0, "timer unit is not a number")
	}
	if !isFinite(unit) || unit <= 0 {
		return header, fail(0, "timer unit must be a positive finite number")
	}
	header.TimerUnit = unit

	if line(1) != "" {
		return header, fail(1, "expected a blank line")
	}

	m = totalTimePattern.FindStringSubmatch(line(2))
	if m == nil {
		return header, fail(2, `expected "Total time: <float> s"`)
	}
	total, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return header, fail(2, "total time is not a number")
	}
	if !isFinite(total) || total < 0 {
		return header, fail(2, "total time must be a finite number not below zero")
	}
	header.TotalTime = total

	m = filePattern.FindStringSubmatch(line(3))
	if m == nil {
		return header, fail(3, `expected "File: <path>"`)
	}
	header.SourceFile = m[1]

	m = functionPattern.FindStringSubmatch(line(4))
	if m == nil {
		return header, fail(4, `expected "Function: <name> at line <int>"`)
	}
	defLine, err := strconv.Atoi(m[2])
	if err != nil {
		return header, fail(4, "definition line is not an integer")
	}
	header.FunctionName = m[1]
	header.DefLine = defLine

	if strings.TrimSpace(line(5)) != "" {
		return header, fail(5, "expected a blank line")
	}
	if len(lines) < headerLines-1 {
		return header, fail(6, "missing column header")
	}

	return header, nil
}

// parseRow parses a single table row. Everything before offset holds the
// numeric columns; everything from offset on is the source code.
func parseRow(raw string, offset int) (model.Line, error) {
	stats := raw
	code := ""
	if len(raw) > offset {
		stats = raw[:offset]
		code = raw[offset:]
	}

	fields := strings.Fields(stats)
	if len(fields) == 0 {
		return model.Line{}, errors.New("missing line number")
	}

	number, err := strconv.Atoi(fields[0])
	if err != nil || number < 1 {
		return model.Line{}, fmt.Errorf("invalid line number %q", fields[0])
	}
	line := model.Line{Number: number, Code: code}

	switch len(fields) {
	case 1:
		return line, nil
	case 5:
	default:
		return model.Line{}, fmt.Errorf("expected 1 or 5 columns before the code, found %d", len(fields))
	}

	hits, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return model.Line{}, fmt.Errorf("invalid hit count %q", fields[1])
	}
	if hits < 1 {
		return model.Line{}, fmt.Errorf("hit count %d is not positive", hits)
	}

	elapsed, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return model.Line{}, fmt.Errorf("invalid time %q", fields[2])
	}
	if !isFinite(elapsed) {
		return model.Line{}, fmt.Errorf("time %q is not finite", fields[2])
	}
	if elapsed < 0 {
		return model.Line{}, fmt.Errorf("time %v is negative", elapsed)
	}

	for _, derived := range fields[3:] {
		if _, err := strconv.ParseFloat(derived, 64); err != nil {
			return model.Line{}, fmt.Errorf("invalid derived column %q", derived)
		}
	}

	line.Stats = &model.LineStats{Hits: hits, Elapsed: elapsed}
	return line, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
