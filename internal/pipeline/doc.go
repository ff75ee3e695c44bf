// Package pipeline runs a merge as a sequence of steps.
//
// A merge run discovers report files, announces them, parses them
// concurrently, folds them into one report, writes the configured outputs
// and records the result in the history. Each stage is a Step that reads
// and fills in a shared Job.
//
// Parsing is the only concurrent stage. BatchParser bounds it with an
// errgroup limit and stores results by index so the merge order never
// depends on scheduling.
package pipeline
