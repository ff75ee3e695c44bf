package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoPath is returned when there is no input path at all.
	ErrNoPath = errors.New("no input path specified")

	// ErrInvalidWorkers is returned when the parse concurrency is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: must be one of text, json, markdown, html")

	// ErrInvalidTop is returned when the hot line count is negative.
	ErrInvalidTop = errors.New("invalid top: must be non-negative")

	// ErrEmptyOutput is returned when the output path is empty.
	ErrEmptyOutput = errors.New("invalid output: path must not be empty")
)
