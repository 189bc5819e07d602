// ABOUTME: Provides Camelot wheel harmonic mixing utilities
// ABOUTME: Converts catalog pitch class and mode to Camelot keys and scores transitions between them

package playlist

import (
	"fmt"
	"regexp"
	"strconv"
)

// CamelotKey represents a parsed Camelot key
type CamelotKey struct {
	Letter string // "A" (minor) or "B" (major)
	Number int    // 1-12
}

// Compile regex once at package initialization
var camelotKeyRegex = regexp.MustCompile(`^(\d+)([AB])$`)

// ParseCamelotKey parses a Camelot key string like "8A" into structured form
// Returns error if the key format is invalid
func ParseCamelotKey(key string) (*CamelotKey, error) {
	if key == "" {
		return nil, fmt.Errorf("empty key")
	}

	matches := camelotKeyRegex.FindStringSubmatch(key)
	if len(matches) != 3 {
		return nil, fmt.Errorf("invalid key format: %s", key)
	}

	number, err := strconv.Atoi(matches[1])
	if err != nil || number < 1 || number > 12 {
		return nil, fmt.Errorf("invalid key number: %s", matches[1])
	}

	return &CamelotKey{
		Letter: matches[2],
		Number: number,
	}, nil
}

// CamelotFromPitchClass converts a catalog key (pitch class 0=C .. 11=B, -1 when
// undetected) and mode (1 major, 0 minor) into a Camelot key.
// Returns nil when the key is unknown.
func CamelotFromPitchClass(pitchClass, mode int) *CamelotKey {
	if pitchClass < 0 || pitchClass > 11 {
		return nil
	}

	// Minor keys share the wheel number of their relative major (three semitones up)
	letter := "B"
	if mode == 0 {
		letter = "A"
		pitchClass = (pitchClass + 3) % 12
	}

	// Each step of a fifth moves one position round the wheel; C major sits at 8B
	return &CamelotKey{
		Letter: letter,
		Number: (pitchClass*7+7)%12 + 1,
	}
}

// String returns the string representation of a CamelotKey
func (k *CamelotKey) String() string {
	if k == nil {
		return ""
	}

	return fmt.Sprintf("%d%s", k.Number, k.Letter)
}

// HarmonicDistanceParsed calculates harmonic compatibility using pre-parsed keys
// Returns a score where:
//
//	0 = perfect match (same key)
//	1 = excellent (±1 number OR relative major/minor)
//	3 = acceptable (±1 number with different letter)
//	higher = less compatible
//
// Returns 999 if either key is nil
func HarmonicDistanceParsed(k1, k2 *CamelotKey) int {
	// If either key is invalid, return large distance
	if k1 == nil || k2 == nil {
		return 999
	}

	// Same key = perfect match
	if k1.Number == k2.Number && k1.Letter == k2.Letter {
		return 0
	}

	// Same number, different letter = relative major/minor (excellent)
	if k1.Number == k2.Number {
		return 1
	}

	// Calculate circular distance between numbers (1-12 wraps around)
	diff := abs(k1.Number - k2.Number)
	circularDist := min(diff, 12-diff)

	// ±1 number with same letter = excellent
	if circularDist == 1 && k1.Letter == k2.Letter {
		return 1
	}

	// ±1 number with different letter = acceptable but not ideal
	if circularDist == 1 {
		return 3
	}

	// Everything else scales with distance
	return circularDist + 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// PitchClass converts a Camelot key back to a catalog pitch class and mode.
func (k *CamelotKey) PitchClass() (pitchClass, mode int) {
	// Inverse of CamelotFromPitchClass: 7 is its own inverse mod 12
	steps := (k.Number + 4) % 12
	major := steps * 7 % 12
	if k.Letter == "B" {
		return major, 1
	}

	return (major + 9) % 12, 0
}
