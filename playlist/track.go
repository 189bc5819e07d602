// ABOUTME: Defines the immutable Track built from catalog metadata, features and analysis
// ABOUTME: Drops low-confidence analysis events and derives the Camelot key for display

package playlist

import (
	"fmt"

	"playlist-simmer/catalog"
)

// DefaultConfidenceThreshold is the cutoff below or at which analysis events are discarded.
const DefaultConfidenceThreshold = 0.7

// Track represents one catalog track with everything needed to featurize it
type Track struct {
	ID       string                // Catalog identifier
	URI      string                // Catalog URI (used when publishing)
	Name     string                // Track title
	Artist   string                // Primary artist name, empty when the catalog has none
	Features catalog.AudioFeatures // Scalar audio features
	Key      *CamelotKey           // Camelot key derived from Features.Key/Mode, nil if undetected

	// Analysis event series, filtered by confidence
	Bars     []catalog.TimeInterval
	Beats    []catalog.TimeInterval
	Sections []catalog.Section
	Segments []catalog.Segment
	Tatums   []catalog.TimeInterval
}

// NewTrack combines one metadata record, one feature record and an optional analysis.
// Events whose confidence is at or below threshold are dropped.
func NewTrack(ref catalog.TrackRef, features catalog.AudioFeatures, analysis *catalog.AudioAnalysis, threshold float64) *Track {
	artist, _ := ref.PrimaryArtist()

	t := &Track{
		ID:       ref.ID,
		URI:      ref.URI,
		Name:     ref.Name,
		Artist:   artist,
		Features: features,
		Key:      CamelotFromPitchClass(features.Key, features.Mode),
	}

	if analysis == nil {
		return t
	}

	t.Bars = filterIntervals(analysis.Bars, threshold)
	t.Beats = filterIntervals(analysis.Beats, threshold)
	t.Tatums = filterIntervals(analysis.Tatums, threshold)

	for _, s := range analysis.Sections {
		if s.Confidence > threshold {
			t.Sections = append(t.Sections, s)
		}
	}

	for _, s := range analysis.Segments {
		if s.Confidence > threshold {
			t.Segments = append(t.Segments, s)
		}
	}

	return t
}

func filterIntervals(events []catalog.TimeInterval, threshold float64) []catalog.TimeInterval {
	var kept []catalog.TimeInterval

	for _, ev := range events {
		if ev.Confidence > threshold {
			kept = append(kept, ev)
		}
	}

	return kept
}

// Counts returns the number of filtered events in each grouped series.
func (t *Track) Counts() Counts {
	return Counts{
		Bars:     len(t.Bars),
		Beats:    len(t.Beats),
		Sections: len(t.Sections),
		Tatums:   len(t.Tatums),
	}
}

// String returns a formatted string representation of the track
func (t *Track) String() string {
	artist := t.Artist
	if artist == "" {
		artist = "-"
	}

	return fmt.Sprintf("%-30s - %s Key: %-3s BPM: %.0f", artist, t.Name, t.Key, t.Features.Tempo)
}
