// Package discover expands command line paths into line profiler report files.
//
// Directories are searched recursively. Files whose extension is not a report
// extension, files matching an exclude pattern and the output file itself are
// skipped with an info level "file ignored" log entry.
package discover
