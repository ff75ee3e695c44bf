package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/parser"
)

// DefaultConcurrency is the number of reports parsed at the same time
// when no limit is configured.
const DefaultConcurrency = 4

// BatchParser parses many report files concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchParser struct {
	// concurrency is the maximum number of files parsed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// parseFile parses a single file. Replaced in tests.
	parseFile func(path string) (*model.Report, error)
}

// BatchOption configures a BatchParser.
type BatchOption func(*BatchParser)

// WithBatchLogger sets a custom logger for batch parsing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchParser) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent parses.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchParser) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchParser creates a new BatchParser.
func NewBatchParser(opts ...BatchOption) *BatchParser {
	bp := &BatchParser{
		concurrency: DefaultConcurrency,
		parseFile:   parser.ParseFile,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ParseAll parses every path and returns the reports in the order of paths,
// whatever order the parses finish in. A failure skips the files after the
// failing one that have not started yet; files before it are always parsed,
// so the error returned is the one of the earliest failing path.
func (bp *BatchParser) ParseAll(ctx context.Context, paths []string) ([]*model.Report, error) {
	bp.logger.Debug("starting batch parse",
		"files", len(paths),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine writes only its own index.
	reports := make([]*model.Report, len(paths))
	errs := make([]error, len(paths))

	// firstFailed is the lowest index that failed so far.
	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(paths)))
	markFailed := func(i int) {
		for {
			cur := firstFailed.Load()
			if int64(i) >= cur || firstFailed.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if firstFailed.Load() < int64(i) {
				return nil
			}

			report, err := bp.parseFile(path)
			if err != nil {
				errs[i] = err
				markFailed(i)
				return nil
			}
			reports[i] = report

			bp.logger.Debug("report parsed",
				"file", path,
				"lines", len(report.Lines),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	bp.logger.Debug("batch parse complete",
		"files", len(paths),
		"elapsed", time.Since(startTime),
	)
	return reports, nil
}
