package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/lpmerge/internal/model"
)

// Job carries the state of one merge run through the pipeline.
// Each step reads what earlier steps produced and fills in its own part.
type Job struct {
	// Paths are the files and directories given by the user.
	Paths []string

	// Targets are the report files found by discovery, in merge order.
	Targets []string

	// Ignored are the files discovery skipped.
	Ignored []string

	// Reports are the parsed reports, index-aligned with Targets.
	Reports []*model.Report

	// Merged is the result of folding Reports.
	Merged *model.Report

	// Written lists the output paths written, in step order.
	Written []string

	// HistoryID is the history row of the merged report, 0 when not recorded.
	HistoryID int64

	// PerformedSteps lists the names of the steps that completed.
	PerformedSteps []string
}

// NewJob creates a Job for the given input paths.
func NewJob(paths ...string) *Job {
	return &Job{Paths: paths}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the job
// as left by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails, which stops the run.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and stops at the first error.
// Cancellation is checked before each step; a step that is already
// running is expected to watch ctx itself.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	p.logger.Debug("starting pipeline", "steps", p.StepNames())

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step", "step", step.Name())

		if err := step.Do(ctx, job); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed", "step", step.Name())
		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
