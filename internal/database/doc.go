// Package database provides SQLite-based storage for the merge history.
//
// The HistoryDB stores one row per successful merge with the merged report
// as JSON, the input files, and a digest of the source code the reports
// were captured against. The history lets users list earlier merges of a
// function and render any of them again.
//
// The database is a single file (modernc.org/sqlite, no CGO) kept in the
// XDG data directory by default.
package database
