package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/lpmerge/internal/discover"
	"github.com/nao1215/lpmerge/internal/merge"
	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/report"
)

// StdoutPath is the output path that means standard output.
const StdoutPath = "-"

// DiscoverStep expands the job's paths into report files.
// It returns merge.ErrNoTarget when no report file is found.
type DiscoverStep struct {
	opts discover.Options
}

// NewDiscoverStep creates a discovery step.
func NewDiscoverStep(opts discover.Options) *DiscoverStep {
	return &DiscoverStep{opts: opts}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(_ context.Context, job *Job) error {
	result, err := discover.Discover(job.Paths, s.opts)
	if err != nil {
		return err
	}
	job.Targets = result.Targets
	job.Ignored = result.Ignored

	if len(job.Targets) == 0 {
		return merge.ErrNoTarget
	}
	return nil
}

// AnnounceStep prints the list of files about to be merged.
type AnnounceStep struct {
	out io.Writer
}

// NewAnnounceStep creates a step printing the target list to out.
func NewAnnounceStep(out io.Writer) *AnnounceStep {
	return &AnnounceStep{out: out}
}

// Name returns the step name.
func (s *AnnounceStep) Name() string {
	return "announce"
}

// Do prints "Process following N files:" and one tab-indented line per file.
func (s *AnnounceStep) Do(_ context.Context, job *Job) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Process following %d files:\n", len(job.Targets))
	for _, t := range job.Targets {
		fmt.Fprintf(&b, "\t%s\n", t)
	}
	_, err := s.out.Write(b.Bytes())
	return err
}

// ParseStep parses every target concurrently.
type ParseStep struct {
	parser *BatchParser
}

// NewParseStep creates a parsing step.
func NewParseStep(parser *BatchParser) *ParseStep {
	return &ParseStep{parser: parser}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parsing step.
func (s *ParseStep) Do(ctx context.Context, job *Job) error {
	reports, err := s.parser.ParseAll(ctx, job.Targets)
	if err != nil {
		return err
	}
	job.Reports = reports
	return nil
}

// MergeStep folds the parsed reports in target order.
type MergeStep struct{}

// NewMergeStep creates a merging step.
func NewMergeStep() *MergeStep {
	return &MergeStep{}
}

// Name returns the step name.
func (s *MergeStep) Name() string {
	return "merge"
}

// Do executes the merging step.
func (s *MergeStep) Do(_ context.Context, job *Job) error {
	merged, err := merge.All(job.Reports)
	if err != nil {
		return err
	}
	job.Merged = merged
	return nil
}

// WriterFactory builds a report writer for an output stream.
type WriterFactory func(io.Writer) report.Writer

// Override picks another destination and writer for a merged report.
// It returns false to keep the output's own.
type Override func(r *model.Report) (path string, newWriter WriterFactory, ok bool)

// Output describes one destination of the merged report.
type Output struct {
	path      string
	stdout    io.Writer
	newWriter WriterFactory
	override  Override
}

// NewOutput creates an output writing the merged report to path.
// StdoutPath writes to stdout instead of a file.
func NewOutput(path string, stdout io.Writer, newWriter WriterFactory) *Output {
	return &Output{path: path, stdout: stdout, newWriter: newWriter}
}

// WithOverride sets a per-report override of the destination and writer.
func (o *Output) WithOverride(override Override) *Output {
	o.override = override
	return o
}

// resolve returns the destination and writer factory for r.
func (o *Output) resolve(r *model.Report) (string, WriterFactory) {
	if o.override != nil {
		if p, w, ok := o.override(r); ok {
			return p, w
		}
	}
	return o.path, o.newWriter
}

// rendered is an output whose content is ready to be written.
type rendered struct {
	path   string
	stdout io.Writer
	buf    bytes.Buffer
}

// WriteStep renders the merged report for every output and then writes them.
// Every output is rendered before any file is touched, and files are
// written to temporary names and renamed only after all of them succeeded,
// so a failure leaves no output behind.
type WriteStep struct {
	outputs []*Output
}

// NewWriteStep creates a step writing the merged report to outputs.
func NewWriteStep(outputs ...*Output) *WriteStep {
	return &WriteStep{outputs: outputs}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, job *Job) error {
	if job.Merged == nil {
		return merge.ErrNoTarget
	}

	results := make([]*rendered, len(s.outputs))
	writers := make([]report.Writer, len(s.outputs))
	for i, o := range s.outputs {
		path, newWriter := o.resolve(job.Merged)
		results[i] = &rendered{path: path, stdout: o.stdout}
		writers[i] = newWriter(&results[i].buf)
	}
	if _, err := report.NewMultiWriter(writers...).Write(job.Merged); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := commitFiles(results); err != nil {
		return err
	}
	for _, r := range results {
		if r.path == StdoutPath {
			if _, err := r.stdout.Write(r.buf.Bytes()); err != nil {
				return err
			}
		}
		job.Written = append(job.Written, r.path)
	}
	return nil
}

// commitFiles writes every file output next to its destination under a
// temporary name, then renames them into place. On failure the files
// written by this call are removed.
func commitFiles(results []*rendered) error {
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}

	targets := make([]string, 0, len(results))
	for _, r := range results {
		if r.path == StdoutPath {
			continue
		}
		tmp, err := writeTemp(r.path, r.buf.Bytes())
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to write %s: %w", r.path, err)
		}
		temps = append(temps, tmp)
		targets = append(targets, r.path)
	}

	for i, tmp := range temps {
		if err := os.Rename(tmp, targets[i]); err != nil {
			cleanup()
			for _, done := range targets[:i] {
				_ = os.Remove(done)
			}
			return fmt.Errorf("failed to write %s: %w", targets[i], err)
		}
	}
	return nil
}

// writeTemp writes data to a new temporary file in the directory of path.
func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Chmod(0o644); err != nil { //nolint:gosec // Output is meant to be readable
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// Recorder persists merged reports.
type Recorder interface {
	SaveMerge(ctx context.Context, report *model.Report) (int64, error)
}

// RecordStep saves the merged report to the history.
// A failure is logged and does not fail the run, since the output
// has already been written by then.
type RecordStep struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewRecordStep creates a history step.
func NewRecordStep(recorder Recorder, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{recorder: recorder, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the history step.
func (s *RecordStep) Do(ctx context.Context, job *Job) error {
	if job.Merged == nil {
		return nil
	}
	id, err := s.recorder.SaveMerge(ctx, job.Merged)
	if err != nil {
		s.logger.Warn("failed to record merge history", "error", err)
		return nil
	}
	job.HistoryID = id
	s.logger.Debug("merge recorded", "id", id, "function", job.Merged.FunctionName)
	return nil
}

// MergeConfig holds everything DefaultPipeline needs to assemble a merge run.
type MergeConfig struct {
	// Discover controls target discovery.
	Discover discover.Options

	// Workers is the parse concurrency.
	Workers int

	// Announce receives the target list. Nil skips the announcement.
	Announce io.Writer

	// Outputs are the destinations written after a successful merge.
	Outputs []*Output

	// Recorder saves the merged report. Nil disables history.
	Recorder Recorder

	// Logger is shared by every step.
	Logger *slog.Logger
}

// DefaultPipeline builds the standard merge run:
// discover, announce, parse, merge, write outputs, record history.
func DefaultPipeline(cfg MergeConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddStep(NewDiscoverStep(cfg.Discover))
	if cfg.Announce != nil {
		p.AddStep(NewAnnounceStep(cfg.Announce))
	}
	p.AddSteps(
		NewParseStep(NewBatchParser(WithConcurrency(cfg.Workers), WithBatchLogger(logger))),
		NewMergeStep(),
	)
	if len(cfg.Outputs) > 0 {
		p.AddStep(NewWriteStep(cfg.Outputs...))
	}
	if cfg.Recorder != nil {
		p.AddStep(NewRecordStep(cfg.Recorder, logger))
	}
	return p
}
