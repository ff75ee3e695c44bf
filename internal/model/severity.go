package model

import (
	"fmt"
	"math"
)

// Severity classifies how much of a function's time a single line consumes.
// Levels are ordered from the lightest to the heaviest so they can be compared.
type Severity int

const (
	// SeverityLight is a line below 5% of the total time.
	SeverityLight Severity = iota

	// SeverityNormal is a line at 5% or more.
	SeverityNormal

	// SeverityLightHeavy is a line at 10% or more.
	SeverityLightHeavy

	// SeverityHeavy is a line at 20% or more.
	SeverityHeavy

	// SeverityVeryHeavy is a line at 35% or more.
	SeverityVeryHeavy

	// SeverityCritical is a line at 50% or more.
	SeverityCritical
)

// severityBands lists the lower bound of each level, heaviest first.
var severityBands = []struct {
	bound    float64
	severity Severity
}{
	{50, SeverityCritical},
	{35, SeverityVeryHeavy},
	{20, SeverityHeavy},
	{10, SeverityLightHeavy},
	{5, SeverityNormal},
	{0, SeverityLight},
}

// SeverityFor maps a ratio percentage to its severity band.
//
// Ratios are non-negative by construction. A negative or NaN ratio means
// the report was built incorrectly, so SeverityFor panics instead of
// picking a display style for it.
func SeverityFor(ratio float64) Severity {
	if math.IsNaN(ratio) {
		panic("model: ratio is NaN")
	}
	for _, band := range severityBands {
		if ratio >= band.bound {
			return band.severity
		}
	}
	panic(fmt.Sprintf("model: negative ratio %v", ratio))
}

// Severities returns every level from the heaviest to the lightest.
func Severities() []Severity {
	out := make([]Severity, len(severityBands))
	for i, band := range severityBands {
		out[i] = band.severity
	}
	return out
}

// String returns a stable identifier for the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLight:
		return "light"
	case SeverityNormal:
		return "normal"
	case SeverityLightHeavy:
		return "light-heavy"
	case SeverityHeavy:
		return "heavy"
	case SeverityVeryHeavy:
		return "very-heavy"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LowerBound returns the smallest ratio percentage that falls in the level.
func (s Severity) LowerBound() float64 {
	for _, band := range severityBands {
		if band.severity == s {
			return band.bound
		}
	}
	return math.Inf(1)
}
