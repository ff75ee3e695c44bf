// Package log provides the application's slog loggers.
//
// Loggers built here wrap their handler in a PathHandler, which rewrites
// path-valued attributes (path, file, source, output, files) to
// slash-separated paths relative to the working directory. Log lines of
// the same run are then identical across machines and checkouts.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true)
//	logger.Info("file ignored", "path", "/home/me/runs/notes.md", "reason", "extension .md")
//	// level=INFO msg="file ignored" path=runs/notes.md reason="extension .md"
//
// Without verbose, only warnings and errors are written.
package log
