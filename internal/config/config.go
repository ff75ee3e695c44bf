package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/nao1215/lpmerge/internal/report"
)

// Default configuration values.
const (
	// DefaultPath is the input path used when none is given.
	DefaultPath = "."

	// DefaultOutput is the file the merged report is written to.
	DefaultOutput = "result.txt"

	// DefaultFormat is the output format of the merged report.
	DefaultFormat = string(report.FormatText)

	// DefaultWorkers is the number of reports parsed concurrently.
	// Parsing is I/O bound on small files, so a handful is enough.
	DefaultWorkers = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "lpmerge"
)

// Config holds all configuration options for a merge run.
// It is populated from CLI flags, the config file and the environment,
// and passed to the command explicitly rather than kept in globals.
type Config struct {
	// Paths are the files and directories to merge.
	Paths []string

	// Color enables ANSI severity styles in text output.
	Color bool

	// Output is the path of the merged report, or "-" for stdout.
	Output string

	// Format is the output format name (text, json, markdown, html).
	Format string

	// PprofFile is an additional pprof profile output. Empty disables it.
	PprofFile string

	// Workers is the number of reports parsed concurrently.
	Workers int

	// Top prints the N hottest lines after merging. Zero disables it.
	Top int

	// Extensions are the accepted report file extensions.
	// Empty means the discovery defaults.
	Extensions []string

	// Exclude holds base name glob patterns of files to skip.
	Exclude []string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .lpmerge is searched in the current and home directory,
	// then config.yaml in the XDG config directory.
	ConfigFilePath string

	// Functions holds the per-function settings from the config file.
	Functions *File

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/lpmerge on Linux).
	DBDir string

	// SaveHistory records every successful merge in the history database.
	SaveHistory bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Paths:       []string{DefaultPath},
		Output:      DefaultOutput,
		Format:      DefaultFormat,
		Workers:     DefaultWorkers,
		DBDir:       XDGDataDir(),
		SaveHistory: true,
	}
}

// XDGDataDir returns the XDG data directory for lpmerge.
// On Linux: ~/.local/share/lpmerge
// On macOS: ~/Library/Application Support/lpmerge
// On Windows: %LOCALAPPDATA%\lpmerge
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lpmerge.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGConfigFile returns the config file searched in the XDG config directory.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return ErrNoPath
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if _, err := report.ParseFormat(c.Format); err != nil {
		return ErrInvalidFormat
	}

	if c.Top < 0 {
		return ErrInvalidTop
	}

	if c.Output == "" {
		return ErrEmptyOutput
	}

	if c.Functions != nil {
		for _, fc := range c.Functions.Functions {
			if fc.Format == "" {
				continue
			}
			if _, err := report.ParseFormat(fc.Format); err != nil {
				return ErrInvalidFormat
			}
		}
	}

	return nil
}
