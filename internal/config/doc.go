// Package config provides the configuration of a merge run.
// Settings come from CLI flags, the .lpmerge YAML file, a .env file and
// LPMERGE_* environment variables, in decreasing order of precedence.
package config
