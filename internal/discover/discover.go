package discover

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the file extensions of line profiler reports.
var DefaultExtensions = []string{".txt"}

// Options controls which files are taken as report candidates.
type Options struct {
	// Extensions lists accepted extensions including the dot.
	// Empty means DefaultExtensions.
	Extensions []string

	// Exclude holds glob patterns matched against each file's base name.
	Exclude []string

	// Skip holds paths that are never candidates, typically the output file.
	Skip []string

	// Logger receives a notice for each ignored file. Nil disables logging.
	Logger *slog.Logger
}

// Result is the outcome of a discovery run.
type Result struct {
	// Targets are the report files to merge, in discovery order.
	Targets []string

	// Ignored are files that were seen but not accepted.
	Ignored []string
}

// Discover expands paths into report files.
//
// Directories are walked recursively in lexical order; files are taken as
// given. Each path keeps its position in the input, so the merge order
// follows the order of the arguments. A file reached twice is listed once.
func Discover(paths []string, opts Options) (*Result, error) {
	d := newDiscoverer(opts)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			d.consider(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			d.consider(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	return &d.result, nil
}

type discoverer struct {
	opts   Options
	skip   map[string]struct{}
	seen   map[string]struct{}
	result Result
}

func newDiscoverer(opts Options) *discoverer {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	d := &discoverer{
		opts: opts,
		skip: make(map[string]struct{}, len(opts.Skip)),
		seen: make(map[string]struct{}),
	}
	for _, s := range opts.Skip {
		d.skip[absolute(s)] = struct{}{}
	}
	return d
}

func (d *discoverer) consider(path string) {
	key := absolute(path)
	if _, ok := d.seen[key]; ok {
		return
	}
	d.seen[key] = struct{}{}

	if reason := d.rejectReason(path, key); reason != "" {
		d.result.Ignored = append(d.result.Ignored, path)
		if d.opts.Logger != nil {
			d.opts.Logger.Info("file ignored", slog.String("path", path), slog.String("reason", reason))
		}
		return
	}
	d.result.Targets = append(d.result.Targets, path)
}

func (d *discoverer) rejectReason(path, key string) string {
	if _, ok := d.skip[key]; ok {
		return "output file"
	}
	ext := filepath.Ext(path)
	if !slices.ContainsFunc(d.opts.Extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
		return "extension " + quoteExt(ext)
	}
	base := filepath.Base(path)
	for _, pattern := range d.opts.Exclude {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return "excluded by " + pattern
		}
	}
	return ""
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

func quoteExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
