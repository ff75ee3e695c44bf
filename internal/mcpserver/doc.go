// Package mcpserver exposes report parsing and merging over the Model
// Context Protocol, so an assistant can merge profiler runs and ask for
// the hottest lines. Tool failures are returned as tool errors carrying
// the parse or merge error text.
package mcpserver
