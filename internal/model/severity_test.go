package model

import (
	"math"
	"testing"
)

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityLight, "light"},
		{SeverityNormal, "normal"},
		{SeverityLightHeavy, "light-heavy"},
		{SeverityHeavy, "heavy"},
		{SeverityVeryHeavy, "very-heavy"},
		{SeverityCritical, "critical"},
		{Severity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestSeverityFor tests the ratio bands, including their exact boundaries.
func TestSeverityFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		ratio    float64
		expected Severity
	}{
		{"zero", 0, SeverityLight},
		{"just below normal", 4.99, SeverityLight},
		{"normal boundary", 5, SeverityNormal},
		{"light-heavy boundary", 10, SeverityLightHeavy},
		{"between heavy bands", 19.9, SeverityLightHeavy},
		{"heavy boundary", 20, SeverityHeavy},
		{"very-heavy boundary", 35, SeverityVeryHeavy},
		{"critical boundary", 50, SeverityCritical},
		{"whole function", 100, SeverityCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SeverityFor(tc.ratio); got != tc.expected {
				t.Errorf("SeverityFor(%v) = %v, expected %v", tc.ratio, got, tc.expected)
			}
		})
	}
}

// TestSeverityForPanicsOnImpossibleRatio tests that negative and NaN ratios are defects.
func TestSeverityForPanicsOnImpossibleRatio(t *testing.T) {
	t.Parallel()

	for _, ratio := range []float64{-0.1, math.NaN()} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for ratio %v", ratio)
				}
			}()
			SeverityFor(ratio)
		}()
	}
}

// TestSeverityOrdering tests that severity levels are ordered from light to critical.
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	levels := Severities()
	if len(levels) != 6 {
		t.Fatalf("expected 6 levels, got %d", len(levels))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i-1] <= levels[i] {
			t.Errorf("expected %v > %v", levels[i-1], levels[i])
		}
		if levels[i-1].LowerBound() <= levels[i].LowerBound() {
			t.Errorf("expected bound of %v above bound of %v", levels[i-1], levels[i])
		}
	}
}
