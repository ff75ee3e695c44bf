package merge

import (
	"errors"
	"fmt"

	"github.com/nao1215/lpmerge/internal/model"
)

// ErrNoTarget is returned by All when there is nothing to merge.
var ErrNoTarget = errors.New("no target file detected")

// HeaderMismatchError is returned when two reports profile different functions.
type HeaderMismatchError struct {
	// Left is the origin of the accumulated report.
	Left string

	// Right is the origin of the report being folded in.
	Right string

	// LeftHeader is the header of the accumulated report.
	LeftHeader model.Header

	// RightHeader is the header of the report being folded in.
	RightHeader model.Header
}

// Error implements the error interface.
func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf(
		"header mismatch between %s and %s: "+
			"timer unit %v vs %v, file %s vs %s, function %s vs %s, line %d vs %d",
		e.Left, e.Right,
		e.LeftHeader.TimerUnit, e.RightHeader.TimerUnit,
		e.LeftHeader.SourceFile, e.RightHeader.SourceFile,
		e.LeftHeader.FunctionName, e.RightHeader.FunctionName,
		e.LeftHeader.DefLine, e.RightHeader.DefLine,
	)
}

// LineSetMismatchError is returned when two reports cover different line numbers.
type LineSetMismatchError struct {
	Left  string
	Right string

	// Missing holds line numbers present on the left only.
	Missing []int

	// Extra holds line numbers present on the right only.
	Extra []int
}

// Error implements the error interface.
func (e *LineSetMismatchError) Error() string {
	return fmt.Sprintf("line set mismatch between %s and %s: missing %v, extra %v",
		e.Left, e.Right, e.Missing, e.Extra)
}

// LineHitMismatchError is returned when a line was executed in only one of two reports.
type LineHitMismatchError struct {
	Line  int
	Left  string
	Right string

	// LeftHasHits reports which side carried the hit data.
	LeftHasHits bool
}

// Error implements the error interface.
func (e *LineHitMismatchError) Error() string {
	with, without := e.Left, e.Right
	if !e.LeftHasHits {
		with, without = e.Right, e.Left
	}
	return fmt.Sprintf("line %d has hits in %s but not in %s", e.Line, with, without)
}

// SourceDriftError is returned when the same line number holds different code,
// meaning the reports were captured against different versions of the source.
type SourceDriftError struct {
	Line      int
	Left      string
	Right     string
	LeftCode  string
	RightCode string
}

// Error implements the error interface.
func (e *SourceDriftError) Error() string {
	return fmt.Sprintf("source drift at line %d between %s and %s: %q vs %q",
		e.Line, e.Left, e.Right, e.LeftCode, e.RightCode)
}
