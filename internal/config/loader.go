package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".lpmerge"

// Environment variables that override the config file.
const (
	EnvColor   = "LPMERGE_COLOR"
	EnvOutput  = "LPMERGE_OUTPUT"
	EnvFormat  = "LPMERGE_FORMAT"
	EnvWorkers = "LPMERGE_WORKERS"
)

// Flag names whose values the config file and environment may fill in.
const (
	FlagColor   = "color"
	FlagOutput  = "output"
	FlagFormat  = "format"
	FlagWorkers = "workers"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Functions == nil {
		cf.Functions = make(map[string]FunctionConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .lpmerge in the current directory
// 3. Look for .lpmerge in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}
	return firstExisting(configCandidates())
}

// configCandidates lists the implicit config file locations by priority.
func configCandidates() []string {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	return append(candidates, XDGConfigFile())
}

// firstExisting returns the first path that exists, or "".
func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ApplyFile copies the file's defaults onto c.
// Values of flags for which changed reports true are kept.
func (c *Config) ApplyFile(cf *File, changed func(flag string) bool) {
	if cf == nil {
		return
	}
	c.Functions = cf

	d := cf.Defaults
	if d.Color != nil && !changed(FlagColor) {
		c.Color = *d.Color
	}
	if d.Output != "" && !changed(FlagOutput) {
		c.Output = d.Output
	}
	if d.Format != "" && !changed(FlagFormat) {
		c.Format = d.Format
	}
	if d.Workers != 0 && !changed(FlagWorkers) {
		c.Workers = d.Workers
	}
	if len(d.Extensions) > 0 && len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if len(d.Exclude) > 0 {
		c.Exclude = append(c.Exclude, d.Exclude...)
	}
}

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error. Variables already set are not replaced.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv copies the LPMERGE_* overrides onto c using lookup,
// which is os.LookupEnv outside of tests.
// Values of flags for which changed reports true are kept.
func (c *Config) ApplyEnv(lookup func(string) (string, bool), changed func(flag string) bool) error {
	if v, ok := lookup(EnvColor); ok && !changed(FlagColor) {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvColor, v, err)
		}
		c.Color = b
	}
	if v, ok := lookup(EnvOutput); ok && v != "" && !changed(FlagOutput) {
		c.Output = v
	}
	if v, ok := lookup(EnvFormat); ok && v != "" && !changed(FlagFormat) {
		c.Format = v
	}
	if v, ok := lookup(EnvWorkers); ok && !changed(FlagWorkers) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	return nil
}
