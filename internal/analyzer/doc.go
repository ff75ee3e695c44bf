// Package analyzer ranks the lines of a merged report by their share of the
// function's time.
package analyzer
