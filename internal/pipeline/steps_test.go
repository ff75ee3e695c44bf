package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/lpmerge/internal/discover"
	"github.com/nao1215/lpmerge/internal/merge"
	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/parser"
	"github.com/nao1215/lpmerge/internal/report"
)

// writeRun writes a rendered single-line report with the given counters.
func writeRun(t *testing.T, path string, hits int64, elapsed float64) {
	t.Helper()

	r := &model.Report{
		Header: model.Header{
			TimerUnit:    1e-06,
			TotalTime:    elapsed * 1e-06,
			SourceFile:   "app.py",
			FunctionName: "work",
			DefLine:      1,
		},
		Lines: []model.Line{
			{Number: 1, Code: "def work():"},
			{Number: 2, Code: "    pass", Stats: &model.LineStats{Hits: hits, Elapsed: elapsed}},
		},
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(report.Render(r, false)), 0o600); err != nil {
		t.Fatal(err)
	}
}

func textOutput(path string, stdout io.Writer) *Output {
	return NewOutput(path, stdout, func(w io.Writer) report.Writer {
		return report.NewTextWriter(w)
	})
}

type fakeRecorder struct {
	saved []*model.Report
	err   error
}

func (f *fakeRecorder) SaveMerge(_ context.Context, r *model.Report) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, r)
	return int64(len(f.saved)), nil
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("merges discovered reports and writes output once", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeRun(t, filepath.Join(dir, "runs", "1.txt"), 100, 50)
		writeRun(t, filepath.Join(dir, "runs", "2.txt"), 50, 25)
		out := filepath.Join(dir, "result.txt")

		var banner bytes.Buffer
		recorder := &fakeRecorder{}
		p := DefaultPipeline(MergeConfig{
			Discover: discover.Options{Skip: []string{out}},
			Workers:  2,
			Announce: &banner,
			Outputs:  []*Output{textOutput(out, nil)},
			Recorder: recorder,
		})

		job := NewJob(dir)
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantBanner := "Process following 2 files:\n" +
			"\t" + filepath.Join(dir, "runs", "1.txt") + "\n" +
			"\t" + filepath.Join(dir, "runs", "2.txt") + "\n"
		if banner.String() != wantBanner {
			t.Errorf("unexpected banner %q", banner.String())
		}

		merged, err := parser.ParseFile(out)
		if err != nil {
			t.Fatalf("output does not parse: %v", err)
		}
		l, _ := merged.Line(2)
		if l.Stats.Hits != 150 || l.Stats.Elapsed != 75 {
			t.Errorf("unexpected merged stats %+v", l.Stats)
		}
		if perHit, _ := merged.PerHit(l); perHit != 0.5 {
			t.Errorf("expected per hit 0.5, got %v", perHit)
		}

		if job.HistoryID != 1 || len(recorder.saved) != 1 {
			t.Errorf("expected merge to be recorded, got id %d", job.HistoryID)
		}
		wantSteps := []string{"discover", "announce", "parse", "merge", "write", "record"}
		if strings.Join(job.PerformedSteps, ",") != strings.Join(wantSteps, ",") {
			t.Errorf("unexpected steps %v", job.PerformedSteps)
		}
	})

	t.Run("no target file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		out := filepath.Join(dir, "result.txt")
		var banner bytes.Buffer
		p := DefaultPipeline(MergeConfig{
			Announce: &banner,
			Outputs:  []*Output{textOutput(out, nil)},
		})

		err := p.Execute(context.Background(), NewJob(dir))
		if !errors.Is(err, merge.ErrNoTarget) {
			t.Fatalf("expected ErrNoTarget, got %v", err)
		}
		if banner.Len() != 0 {
			t.Errorf("expected no banner, got %q", banner.String())
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
	})

	t.Run("merge error writes nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeRun(t, filepath.Join(dir, "1.txt"), 1, 1)
		writeRun(t, filepath.Join(dir, "2.txt"), 1, 1)
		other := filepath.Join(dir, "3.txt")
		writeRun(t, other, 1, 1)
		data, err := os.ReadFile(other)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(other, bytes.Replace(data, []byte("at line 1"), []byte("at line 9"), 1), 0o600); err != nil {
			t.Fatal(err)
		}

		out := filepath.Join(dir, "out", "result.txt")
		recorder := &fakeRecorder{}
		p := DefaultPipeline(MergeConfig{
			Outputs:  []*Output{textOutput(out, nil)},
			Recorder: recorder,
		})

		err = p.Execute(context.Background(), NewJob(dir))
		var mismatch *merge.HeaderMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected HeaderMismatchError, got %v", err)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
		if len(recorder.saved) != 0 {
			t.Error("failed merge must not be recorded")
		}
	})

	t.Run("parse error is returned", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeRun(t, filepath.Join(dir, "1.txt"), 1, 1)
		if err := os.WriteFile(filepath.Join(dir, "2.txt"), []byte("not a report\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		p := DefaultPipeline(MergeConfig{})
		err := p.Execute(context.Background(), NewJob(dir))
		var headerErr *parser.MalformedHeaderError
		if !errors.As(err, &headerErr) {
			t.Fatalf("expected MalformedHeaderError, got %v", err)
		}
	})
}

func TestWriteStepStdout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "1.txt"), 3, 9)

	var stdout bytes.Buffer
	p := DefaultPipeline(MergeConfig{
		Outputs: []*Output{textOutput(StdoutPath, &stdout)},
	})
	if err := p.Execute(context.Background(), NewJob(dir)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "Timer unit: 1e-06 s") {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
}

func TestRecordStepFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	step := NewRecordStep(&fakeRecorder{err: errors.New("disk full")}, nil)
	job := &Job{Merged: &model.Report{}}
	if err := step.Do(context.Background(), job); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if job.HistoryID != 0 {
		t.Errorf("expected no history id, got %d", job.HistoryID)
	}
}

func TestWriteStepOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "in", "1.txt"), 2, 4)
	def := filepath.Join(dir, "result.txt")
	custom := filepath.Join(dir, "work.json")

	out := textOutput(def, nil).WithOverride(func(r *model.Report) (string, WriterFactory, bool) {
		if r.FunctionName != "work" {
			return "", nil, false
		}
		return custom, func(w io.Writer) report.Writer { return report.NewJSONWriter(w) }, true
	})

	job := NewJob(filepath.Join(dir, "in"))
	if err := DefaultPipeline(MergeConfig{Outputs: []*Output{out}}).Execute(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(def); !os.IsNotExist(err) {
		t.Error("default output should not be written")
	}
	data, err := os.ReadFile(custom)
	if err != nil {
		t.Fatalf("expected override output: %v", err)
	}
	if !strings.Contains(string(data), `"function_name":"work"`) {
		t.Errorf("expected JSON output, got %s", data)
	}
	if len(job.Written) != 1 || job.Written[0] != custom {
		t.Errorf("unexpected written paths %v", job.Written)
	}
}

func TestWriteStepWritesNothingOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "in", "1.txt"), 2, 4)
	result := filepath.Join(dir, "result.txt")
	profile := filepath.Join(dir, "missing", "merged.pb.gz")

	job := NewJob(filepath.Join(dir, "in"))
	err := DefaultPipeline(MergeConfig{
		Outputs: []*Output{
			textOutput(result, nil),
			NewOutput(profile, nil, func(w io.Writer) report.Writer { return report.NewPprofWriter(w) }),
		},
	}).Execute(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), profile) {
		t.Fatalf("expected error naming %s, got %v", profile, err)
	}

	if _, err := os.Stat(result); !os.IsNotExist(err) {
		t.Error("expected no result file")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "in" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
	if len(job.Written) != 0 {
		t.Errorf("expected nothing written, got %v", job.Written)
	}
}

func TestWriteStepWritesAllOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "in", "1.txt"), 2, 4)
	result := filepath.Join(dir, "result.txt")
	profile := filepath.Join(dir, "merged.pb.gz")

	var stdout bytes.Buffer
	job := NewJob(filepath.Join(dir, "in"))
	err := DefaultPipeline(MergeConfig{
		Outputs: []*Output{
			textOutput(result, nil),
			NewOutput(profile, nil, func(w io.Writer) report.Writer { return report.NewPprofWriter(w) }),
			textOutput(StdoutPath, &stdout),
		},
	}).Execute(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, path := range []string{result, profile} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("expected %s to have content", path)
		}
	}
	if stdout.Len() == 0 {
		t.Error("expected report on stdout")
	}
	if strings.Join(job.Written, ",") != strings.Join([]string{result, profile, StdoutPath}, ",") {
		t.Errorf("unexpected written paths %v", job.Written)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected in/, result and profile only, got %d entries", len(entries))
	}
}
