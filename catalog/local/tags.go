// ABOUTME: Reads track metadata directly from audio file tags
// ABOUTME: Falls back to tagged BPM, Camelot key and energy when no feature sidecar exists

package local

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dhowden/tag"

	"playlist-simmer/catalog"
	"playlist-simmer/playlist"
)

// TrackTags is the subset of audio file tags the local catalog uses
type TrackTags struct {
	Title  string
	Artist string
	Album  string
	Key    string  // Camelot key (e.g., "8A") from the comment tag
	Energy int     // Energy level 1-10 (0 if not available)
	BPM    float64 // Beats per minute (0 if not available)
}

// Compile regexes once at package initialization
var (
	keyRegex    = regexp.MustCompile(`(\d+[AB])\s*-\s*Energy`)
	energyRegex = regexp.MustCompile(`Energy\s+(\d+)`)
)

// ReadTags reads metadata for a track directly from the file
func ReadTags(path string) (*TrackTags, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	title := metadata.Title()
	if title == "" {
		title = filepath.Base(path)
	}

	// Extract Camelot key and energy from comments (format: "8A - Energy 6")
	comments := metadata.Comment()

	return &TrackTags{
		Title:  title,
		Artist: metadata.Artist(),
		Album:  metadata.Album(),
		Key:    extractKey(comments),
		Energy: extractEnergy(comments),
		BPM:    extractBPM(metadata.Raw()),
	}, nil
}

// extractBPM reads BPM from custom tags (varies by format)
func extractBPM(raw map[string]any) float64 {
	for _, key := range []string{"BPM", "TBPM", "bpm", "tempo"} {
		val, exists := raw[key]
		if !exists {
			continue
		}

		var bpm float64
		switch v := val.(type) {
		case string:
			bpm, _ = strconv.ParseFloat(v, 64)
		case int:
			bpm = float64(v)
		case float64:
			bpm = v
		}

		if bpm > 0 {
			return bpm
		}
	}

	return 0
}

// extractKey extracts Camelot key from comments string
// Example: "8A - Energy 6" -> "8A"
func extractKey(comments string) string {
	matches := keyRegex.FindStringSubmatch(comments)
	if len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// extractEnergy extracts energy level from comments string
// Example: "8A - Energy 6" -> 6
func extractEnergy(comments string) int {
	matches := energyRegex.FindStringSubmatch(comments)
	if len(matches) > 1 {
		energy, err := strconv.Atoi(matches[1])
		if err == nil {
			return energy
		}
	}

	return 0
}

// Features derives partial audio features from tags.
// Returns nil unless both a tempo and a parseable key are tagged.
func (t *TrackTags) Features(id string) *catalog.AudioFeatures {
	if t == nil || t.BPM <= 0 {
		return nil
	}

	key, err := playlist.ParseCamelotKey(t.Key)
	if err != nil {
		return nil
	}

	pc, mode := key.PitchClass()

	return &catalog.AudioFeatures{
		ID:     id,
		Energy: float64(t.Energy) / 10,
		Key:    pc,
		Mode:   mode,
		Tempo:  t.BPM,
	}
}
