// ABOUTME: Minimal precision formatting for transition costs
// ABOUTME: Formats float64 pairs with just enough digits to show the difference

package main

import (
	"fmt"
	"math"
)

const (
	minDisplayPrecision = 2
	maxDisplayPrecision = 10
)

// FormatMinimalPrecision returns a formatted string of curr with the minimum
// precision needed to distinguish it from prev. Returns a string suitable for
// displaying transition costs in CLI output.
func FormatMinimalPrecision(prev, curr float64) string {
	s, _ := FormatWithMonotonicPrecision(prev, curr, minDisplayPrecision)
	return s
}

// FormatWithMonotonicPrecision formats curr with enough digits to tell it from prev,
// never using fewer than minPrecision. It returns the precision used so that a
// sequence of values (watch mode reruns) never loses digits.
func FormatWithMonotonicPrecision(prev, curr float64, minPrecision int) (string, int) {
	precision := max(minPrecision, minDisplayPrecision)

	if !math.IsNaN(prev) && !math.IsNaN(curr) && !math.IsInf(prev, 0) && !math.IsInf(curr, 0) && prev != curr {
		precision = max(precision, distinguishingPrecision(prev, curr))
	}

	precision = min(precision, maxDisplayPrecision)

	return fmt.Sprintf("%.*f", precision, curr), precision
}

// distinguishingPrecision finds the first precision at which prev and curr format
// differently, plus one digit for clarity
func distinguishingPrecision(prev, curr float64) int {
	for precision := 1; precision <= maxDisplayPrecision; precision++ {
		if fmt.Sprintf("%.*f", precision, prev) != fmt.Sprintf("%.*f", precision, curr) {
			return min(precision+1, maxDisplayPrecision)
		}
	}

	// Fallback to max precision if still can't distinguish
	return maxDisplayPrecision
}
