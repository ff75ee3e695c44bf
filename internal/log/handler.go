package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// pathKeys contains attribute keys whose values are file system paths.
var pathKeys = map[string]bool{
	"path":   true,
	"file":   true,
	"source": true,
	"output": true,
	"files":  true,
}

// PathHandler wraps an slog.Handler to normalize path attributes.
// Paths under the working directory are made relative to it and every
// path uses forward slashes, so the same run logs the same lines on any
// machine.
type PathHandler struct {
	// handler is the underlying slog handler that receives normalized records.
	handler slog.Handler

	// base is the directory paths are made relative to.
	base string
}

// NewPathHandler creates a new PathHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
// Paths are made relative to the current working directory.
func NewPathHandler(handler slog.Handler) *PathHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	base, err := os.Getwd()
	if err != nil {
		base = ""
	}
	return &PathHandler{handler: handler, base: base}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PathHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle normalizes the record's attributes and passes it to the underlying handler.
func (h *PathHandler) Handle(ctx context.Context, r slog.Record) error {
	normalized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		normalized.AddAttrs(h.normalizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, normalized)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *PathHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	normalized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		normalized[i] = h.normalizeAttr(a)
	}
	return &PathHandler{handler: h.handler.WithAttrs(normalized), base: h.base}
}

// WithGroup returns a new handler with the given group name.
func (h *PathHandler) WithGroup(name string) slog.Handler {
	return &PathHandler{handler: h.handler.WithGroup(name), base: h.base}
}

// normalizeAttr rewrites a single attribute, recursively handling groups.
func (h *PathHandler) normalizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		normalized := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			normalized[i] = h.normalizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(normalized...)}
	}

	if !pathKeys[strings.ToLower(a.Key)] {
		return a
	}

	switch v := a.Value.Any().(type) {
	case string:
		return slog.String(a.Key, h.normalizePath(v))
	case []string:
		paths := make([]string, len(v))
		for i, p := range v {
			paths[i] = h.normalizePath(p)
		}
		return slog.Any(a.Key, paths)
	default:
		return a
	}
}

// normalizePath returns p relative to the base directory when it lies
// inside it, always with forward slashes.
func (h *PathHandler) normalizePath(p string) string {
	if p == "" {
		return p
	}
	if h.base != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(h.base, p); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// NewLogger creates a new slog.Logger writing text records to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewPathHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewJSONLogger creates a new slog.Logger that outputs JSON records.
// Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewPathHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

// Log record formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by New for a format other than text or json.
var ErrUnknownFormat = errors.New("unknown log format")

// New creates a logger writing records in the named format to w.
func New(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewLogger(w, verbose), nil
	case FormatJSON:
		return NewJSONLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// handlerOptions returns the handler options for the verbosity.
func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
