// Package merge combines line profiler reports of the same function.
//
// Merging sums hit counts, elapsed ticks and the total time of every
// executed line after verifying that both reports describe the same function
// captured against the same source. Any inconsistency is returned as one of
// HeaderMismatchError, LineSetMismatchError, SourceDriftError or
// LineHitMismatchError; there is no partial result.
package merge
