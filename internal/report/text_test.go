package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nao1215/lpmerge/internal/merge"
	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/parser"
)

func TestRender(t *testing.T) {
	t.Parallel()

	want := "Timer unit: 1e-06 s\n" +
		"\n" +
		"Total time: 0.00015 s\n" +
		"File: app.py\n" +
		"Function: work at line 3\n" +
		"\n" +
		"Line #      Hits       Time  Per Hit   % Time  Line Contents\n" +
		strings.Repeat("=", 60) + "\n" +
		"     3" + strings.Repeat(" ", 39) + "  def work():\n" +
		"     4       100       50.0      0.5     33.3      a = 1\n" +
		"     5        50      100.0      2.0     66.7      return a\n"

	got := Render(createTestReport(), false)
	if got != want {
		t.Errorf("unexpected output\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestRenderWidensColumns(t *testing.T) {
	t.Parallel()

	t.Run("hits and time", func(t *testing.T) {
		t.Parallel()

		r := createTestReport()
		r.TotalTime = 200000
		r.Lines[1].Stats = &model.LineStats{Hits: 12345678901, Elapsed: 123456789012.5}

		lines := strings.Split(Render(r, false), "\n")
		// hits width 11+1, time width 14+1
		if len(lines[7]) != 6+12+15+9+9+15 {
			t.Errorf("unexpected separator width %d", len(lines[7]))
		}
		if !strings.HasPrefix(lines[9], "     4 12345678901 123456789012.5     10.0     61.7") {
			t.Errorf("unexpected row %q", lines[9])
		}
	})

	t.Run("per hit", func(t *testing.T) {
		t.Parallel()

		lines := strings.Split(Render(createSlowReport(), false), "\n")
		// time width 11+1, per hit width 10+1
		if len(lines[7]) != 6+10+12+11+9+15 {
			t.Errorf("unexpected separator width %d", len(lines[7]))
		}
		if !strings.HasPrefix(lines[6], "Line #      Hits        Time    Per Hit   % Time") {
			t.Errorf("unexpected column header %q", lines[6])
		}
		if !strings.HasPrefix(lines[8], "     4        10 500000000.0 50000000.0    100.0") {
			t.Errorf("unexpected row %q", lines[8])
		}
	})
}

// createSlowReport returns a report whose only line averages 50 ms per hit
// with a nanosecond timer.
func createSlowReport() *model.Report {
	return &model.Report{
		Header: model.Header{
			TimerUnit:    1e-09,
			TotalTime:    0.5,
			SourceFile:   "slow.py",
			FunctionName: "wait",
			DefLine:      4,
		},
		Lines: []model.Line{
			{Number: 4, Code: "    time.sleep(0.05)", Stats: &model.LineStats{Hits: 10, Elapsed: 500000000}},
		},
		Sources: []string{"slow.txt"},
	}
}

func TestRenderColor(t *testing.T) {
	t.Parallel()

	out := Render(createTestReport(), true)
	lines := strings.Split(out, "\n")

	t.Run("line without hits is not styled", func(t *testing.T) {
		t.Parallel()
		if strings.Contains(lines[8], "\x1b[") {
			t.Errorf("unexpected escape sequence in %q", lines[8])
		}
	})

	t.Run("heavy line is bold yellow", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(lines[9], "\x1b[33;1m     4") {
			t.Errorf("unexpected style in %q", lines[9])
		}
	})

	t.Run("critical line is white on red and code is not styled", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(lines[10], "\x1b[37;41;1m     5") {
			t.Errorf("unexpected style in %q", lines[10])
		}
		if !strings.HasSuffix(lines[10], "\x1b[0m      return a") {
			t.Errorf("expected reset before the code column in %q", lines[10])
		}
	})

	t.Run("header is not styled", func(t *testing.T) {
		t.Parallel()
		header := strings.Join(lines[:8], "\n")
		if strings.Contains(header, "\x1b[") {
			t.Error("unexpected escape sequence in header")
		}
	})
}

func TestStyleFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		sev  model.Severity
		want string
	}{
		{model.SeverityCritical, "\x1b[37;41;1m"},
		{model.SeverityVeryHeavy, "\x1b[31;1m"},
		{model.SeverityHeavy, "\x1b[33;1m"},
		{model.SeverityLightHeavy, "\x1b[33m"},
		{model.SeverityNormal, "\x1b[32m"},
		{model.SeverityLight, "\x1b[36m"},
	}

	for _, tc := range testCases {
		t.Run(tc.sev.String(), func(t *testing.T) {
			t.Parallel()

			got := styleFor(tc.sev).Sprint("x")
			if got != tc.want+"x\x1b[0m" {
				t.Errorf("expected %q, got %q", tc.want+"x\x1b[0m", got)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input float64
		want  string
	}{
		{1e-06, "1e-06"},
		{1.5e-05, "1.5e-05"},
		{0.000123, "0.000123"},
		{0.611106, "0.611106"},
		{12, "12.0"},
		{0, "0.0"},
		{283549, "283549.0"},
		{1e16, "1e+16"},
		{0.1 + 0.2, "0.30000000000000004"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			if got := formatFloat(tc.input); got != tc.want {
				t.Errorf("formatFloat(%v) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// assertSameReport fails unless parsed holds the header and lines of original.
func assertSameReport(t *testing.T, parsed, original *model.Report) {
	t.Helper()

	if parsed.Header != original.Header {
		t.Errorf("header changed: %+v vs %+v", parsed.Header, original.Header)
	}
	if len(parsed.Lines) != len(original.Lines) {
		t.Fatalf("expected %d lines, got %d", len(original.Lines), len(parsed.Lines))
	}
	for i, l := range parsed.Lines {
		o := original.Lines[i]
		if l.Number != o.Number || l.Code != o.Code {
			t.Errorf("line %d changed: %+v vs %+v", o.Number, l, o)
		}
		if (l.Stats == nil) != (o.Stats == nil) {
			t.Fatalf("line %d stats presence changed", o.Number)
		}
		if l.Stats != nil && *l.Stats != *o.Stats {
			t.Errorf("line %d stats changed: %+v vs %+v", o.Number, *l.Stats, *o.Stats)
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	t.Parallel()

	original := createTestReport()
	rendered := Render(original, false)

	parsed, err := parser.Parse("result.txt", strings.NewReader(rendered))
	if err != nil {
		t.Fatalf("rendered output does not parse: %v", err)
	}
	assertSameReport(t, parsed, original)

	t.Run("wide per hit column", func(t *testing.T) {
		t.Parallel()

		slow := createSlowReport()
		back, err := parser.Parse("slow.txt", strings.NewReader(Render(slow, false)))
		if err != nil {
			t.Fatalf("rendered output does not parse: %v", err)
		}
		assertSameReport(t, back, slow)
	})

	t.Run("result can be merged again", func(t *testing.T) {
		t.Parallel()

		again, err := parser.Parse("result.txt", strings.NewReader(rendered))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		merged, err := merge.Merge(parsed, again)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l, _ := merged.Line(5); l.Stats.Hits != 100 {
			t.Errorf("expected 100 hits, got %d", l.Stats.Hits)
		}
	})
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewTextWriter(&buf, WithColor(true)).Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected colored output")
	}
}
