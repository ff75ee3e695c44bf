package analyzer

import (
	"sort"

	"github.com/nao1215/lpmerge/internal/model"
)

// HotLine is an executed line together with its derived metrics.
type HotLine struct {
	Number       int            `json:"number"`
	Code         string         `json:"code"`
	Hits         int64          `json:"hits"`
	Elapsed      float64        `json:"elapsed"`
	PerHit       float64        `json:"per_hit"`
	RatioPercent float64        `json:"ratio_percent"`
	Severity     model.Severity `json:"-"`
}

// TopLines returns the executed lines of a report ordered by ratio (descending).
// Ties keep source order. A non-positive topN returns every executed line.
func TopLines(r *model.Report, topN int) []HotLine {
	lines := make([]HotLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		if !l.HasHits() {
			continue
		}
		perHit, _ := r.PerHit(l)
		ratio, _ := r.RatioPercent(l)
		lines = append(lines, HotLine{
			Number:       l.Number,
			Code:         l.Code,
			Hits:         l.Stats.Hits,
			Elapsed:      l.Stats.Elapsed,
			PerHit:       perHit,
			RatioPercent: ratio,
			Severity:     model.SeverityFor(ratio),
		})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].RatioPercent > lines[j].RatioPercent
	})

	if topN > 0 && topN < len(lines) {
		return lines[:topN]
	}
	return lines
}

// SeverityCounts counts the executed lines in each severity level.
func SeverityCounts(r *model.Report) map[model.Severity]int {
	counts := make(map[model.Severity]int)
	for _, l := range TopLines(r, 0) {
		counts[l.Severity]++
	}
	return counts
}

// WorstSeverity returns the heaviest level reached by any line.
// ok is false when the report has no executed lines.
func WorstSeverity(r *model.Report) (sev model.Severity, ok bool) {
	for _, l := range TopLines(r, 0) {
		if !ok || l.Severity > sev {
			sev, ok = l.Severity, true
		}
	}
	return sev, ok
}
