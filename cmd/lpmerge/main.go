// Package main provides the entry point for the lpmerge CLI.
//
// lpmerge merges line profiler reports of the same function into a single
// report whose counters are the sums of the inputs.
//
// Usage:
//
//	lpmerge merge [paths...]
//	lpmerge history [function]
//
// See --help for all available options.
package main

// main is the entry point for lpmerge.
func main() {
	Execute()
}
