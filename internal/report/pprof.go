package report

import (
	"bytes"
	"io"
	"math"

	"github.com/google/pprof/profile"

	"github.com/nao1215/lpmerge/internal/model"
)

// PprofWriter outputs a report as a gzipped pprof profile so the merged
// numbers can be explored with "go tool pprof".
//
// The profile has one function and one location per executed line. Each
// sample holds the hit count and the elapsed time in nanoseconds.
type PprofWriter struct {
	baseWriter
}

// NewPprofWriter creates a PprofWriter that outputs to the given writer.
func NewPprofWriter(output io.Writer) *PprofWriter {
	return &PprofWriter{baseWriter: newBaseWriter(output)}
}

// Write encodes the report as a pprof profile.
func (w *PprofWriter) Write(report *model.Report) (int, error) {
	p := ToProfile(report)
	if err := p.CheckValid(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// ToProfile converts a report to a pprof profile.
func ToProfile(report *model.Report) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "time", Unit: "nanoseconds"},
		},
		DurationNanos: toNanos(report.TotalTime),
	}
	m := &profile.Mapping{ID: 1, HasFunctions: true, HasFilenames: true, HasLineNumbers: true}
	p.Mapping = []*profile.Mapping{m}

	fn := &profile.Function{
		ID:         1,
		Name:       report.FunctionName,
		SystemName: report.FunctionName,
		Filename:   report.SourceFile,
		StartLine:  int64(report.DefLine),
	}
	p.Function = []*profile.Function{fn}

	locationID := uint64(1)
	for _, l := range report.Lines {
		if !l.HasHits() {
			continue
		}
		location := &profile.Location{
			ID:      locationID,
			Mapping: m,
			Line:    []profile.Line{{Function: fn, Line: int64(l.Number)}},
		}
		p.Location = append(p.Location, location)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{location},
			Value: []int64{
				l.Stats.Hits,
				toNanos(l.Stats.Elapsed * report.TimerUnit),
			},
		})
		locationID++
	}
	return p
}

func toNanos(seconds float64) int64 {
	return int64(math.Round(seconds * 1e9))
}
