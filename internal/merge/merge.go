package merge

import (
	"github.com/nao1215/lpmerge/internal/model"
)

// Merge combines two reports of the same function into a new report.
//
// Checks run in a fixed order: header identity, then the line number sets,
// then each line in ascending order (code first, then hit presence). The
// first failed check is returned and neither input is modified.
func Merge(a, b *model.Report) (*model.Report, error) {
	if !a.SameFunction(b.Header) {
		return nil, &HeaderMismatchError{
			Left:        a.Origin(),
			Right:       b.Origin(),
			LeftHeader:  a.Header,
			RightHeader: b.Header,
		}
	}

	if missing, extra := diffNumbers(a, b); len(missing) > 0 || len(extra) > 0 {
		return nil, &LineSetMismatchError{
			Left:    a.Origin(),
			Right:   b.Origin(),
			Missing: missing,
			Extra:   extra,
		}
	}

	merged := &model.Report{
		Header:  a.Header,
		Lines:   make([]model.Line, 0, len(a.Lines)),
		Sources: make([]string, 0, len(a.Sources)+len(b.Sources)),
	}
	merged.TotalTime = a.TotalTime + b.TotalTime
	merged.Sources = append(merged.Sources, a.Sources...)
	merged.Sources = append(merged.Sources, b.Sources...)

	for _, left := range a.Lines {
		right, _ := b.Line(left.Number)
		line, err := mergeLine(a, b, left, right)
		if err != nil {
			return nil, err
		}
		merged.Lines = append(merged.Lines, line)
	}

	return merged, nil
}

// All folds reports from left to right in input order.
// A single report is returned as a copy.
func All(reports []*model.Report) (*model.Report, error) {
	if len(reports) == 0 {
		return nil, ErrNoTarget
	}

	merged := reports[0].Clone()
	for _, r := range reports[1:] {
		next, err := Merge(merged, r)
		if err != nil {
			return nil, err
		}
		merged = next
	}
	return merged, nil
}

func mergeLine(a, b *model.Report, left, right model.Line) (model.Line, error) {
	if left.Code != right.Code {
		return model.Line{}, &SourceDriftError{
			Line:      left.Number,
			Left:      a.Origin(),
			Right:     b.Origin(),
			LeftCode:  left.Code,
			RightCode: right.Code,
		}
	}

	out := model.Line{Number: left.Number, Code: left.Code}
	switch {
	case left.HasHits() != right.HasHits():
		return model.Line{}, &LineHitMismatchError{
			Line:        left.Number,
			Left:        a.Origin(),
			Right:       b.Origin(),
			LeftHasHits: left.HasHits(),
		}
	case left.HasHits():
		out.Stats = &model.LineStats{
			Hits:    left.Stats.Hits + right.Stats.Hits,
			Elapsed: left.Stats.Elapsed + right.Stats.Elapsed,
		}
	}
	return out, nil
}

// diffNumbers returns the line numbers only a has and those only b has, ascending.
func diffNumbers(a, b *model.Report) (missing, extra []int) {
	inA := make(map[int]struct{}, len(a.Lines))
	for _, l := range a.Lines {
		inA[l.Number] = struct{}{}
	}
	inB := make(map[int]struct{}, len(b.Lines))
	for _, l := range b.Lines {
		inB[l.Number] = struct{}{}
		if _, ok := inA[l.Number]; !ok {
			extra = append(extra, l.Number)
		}
	}
	for _, l := range a.Lines {
		if _, ok := inB[l.Number]; !ok {
			missing = append(missing, l.Number)
		}
	}
	return missing, extra
}
