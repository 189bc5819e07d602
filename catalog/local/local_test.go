// ABOUTME: Tests for the filesystem catalog
// ABOUTME: Uses temp directories with placeholder audio files and JSON sidecars

package local

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"playlist-simmer/catalog"
	"playlist-simmer/catalog/catalogtest"
	"playlist-simmer/playlist"
)

type fixture struct {
	dir      string
	playlist string
	library  string
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// newFixture creates tracks a..e with energy sidecars; d has no features and
// only a, b, c are in the playlist. The library holds every track.
func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	energies := map[string]float64{"a": 0.1, "b": 0.5, "c": 0.9, "e": 0.45}

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		audio := filepath.Join(dir, name+".mp3")
		if err := os.WriteFile(audio, nil, 0o600); err != nil {
			t.Fatalf("Failed to create audio file: %v", err)
		}

		if energy, ok := energies[name]; ok {
			writeJSON(t, audio+featuresSuffix, catalog.AudioFeatures{Energy: energy, Tempo: 120, Key: 5, Mode: 1})
		}
	}
	writeJSON(t, filepath.Join(dir, "a.mp3"+analysisSuffix), catalogtest.Analysis(4, 120))

	f := fixture{
		dir:      dir,
		playlist: filepath.Join(dir, "mix.m3u8"),
		library:  filepath.Join(dir, "library.m3u8"),
	}

	if err := WritePlaylist(f.playlist, []string{"a.mp3", "b.mp3", "c.mp3"}); err != nil {
		t.Fatalf("Failed to write playlist: %v", err)
	}
	if err := WritePlaylist(f.library, []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"}); err != nil {
		t.Fatalf("Failed to write library: %v", err)
	}

	return f
}

// TestGetTrackPage verifies one page of resolved references with file name fallback titles
func TestGetTrackPage(t *testing.T) {
	f := newFixture(t)
	c := New("")

	page, err := c.GetTrackPage(context.Background(), f.playlist, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if page.Next != "" {
		t.Errorf("Expected a single page, got next %q", page.Next)
	}
	if len(page.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(page.Items))
	}

	first := page.Items[0]
	if first.ID != filepath.Join(f.dir, "a.mp3") {
		t.Errorf("Expected resolved id, got %s", first.ID)
	}
	if first.Name != "a.mp3" {
		t.Errorf("Expected file name title, got %s", first.Name)
	}
	if _, ok := first.PrimaryArtist(); ok {
		t.Error("Expected no artist for untagged file")
	}
}

// TestGetPlaylistMetadata verifies names and missing playlists
func TestGetPlaylistMetadata(t *testing.T) {
	f := newFixture(t)
	c := New("")

	md, err := c.GetPlaylistMetadata(context.Background(), f.playlist)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if md.Name != "mix" || md.TotalTracks != 3 {
		t.Errorf("Unexpected metadata %+v", md)
	}

	_, err = c.GetPlaylistMetadata(context.Background(), filepath.Join(f.dir, "missing.m3u8"))
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestGetAudioFeaturesAndAnalysis verifies sidecar reading and empty fallbacks
func TestGetAudioFeaturesAndAnalysis(t *testing.T) {
	f := newFixture(t)
	c := New("")
	ctx := context.Background()

	ids := []string{filepath.Join(f.dir, "a.mp3"), filepath.Join(f.dir, "d.mp3")}
	feats, err := c.GetAudioFeatures(ctx, ids)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if feats[0] == nil || feats[0].Energy != 0.1 || feats[0].ID != ids[0] {
		t.Errorf("Unexpected features for a: %+v", feats[0])
	}
	if feats[1] != nil {
		t.Errorf("Expected nil features for d, got %+v", feats[1])
	}

	analysis, err := c.GetAudioAnalysis(ctx, ids[0])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(analysis.Sections) != 4 {
		t.Errorf("Expected 4 sections, got %d", len(analysis.Sections))
	}

	empty, err := c.GetAudioAnalysis(ctx, ids[1])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(empty.Bars) != 0 {
		t.Error("Expected empty analysis for missing sidecar")
	}
}

// TestGetAudioFeaturesBadSidecar verifies malformed JSON is an error
func TestGetAudioFeaturesBadSidecar(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "bad.mp3")
	if err := os.WriteFile(audio+featuresSuffix, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	if _, err := New("").GetAudioFeatures(context.Background(), []string{audio}); err == nil {
		t.Error("Expected decode error")
	}
}

// TestGetRecommendations verifies ranking by target distance, seed exclusion and limit
func TestGetRecommendations(t *testing.T) {
	f := newFixture(t)
	c := New(f.library)

	req := catalog.RecommendationRequest{
		SeedTracks: []string{filepath.Join(f.dir, "a.mp3"), filepath.Join(f.dir, "c.mp3")},
		Targets:    map[string]float64{"energy": 0.5},
		Limit:      2,
	}

	refs, err := c.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}

	// b (0.5) then e (0.45); d has no features; a and c are seeds
	if !slices.Equal(names, []string{"b.mp3", "e.mp3"}) {
		t.Errorf("Expected [b.mp3 e.mp3], got %v", names)
	}

	none, err := New("").GetRecommendations(context.Background(), req)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no recommendations without a library, got %v, %v", none, err)
	}
}

// TestReplacePlaylistTracks verifies write-back keeps entries relative
func TestReplacePlaylistTracks(t *testing.T) {
	f := newFixture(t)
	c := New("")

	order := []string{filepath.Join(f.dir, "c.mp3"), filepath.Join(f.dir, "a.mp3"), filepath.Join(f.dir, "b.mp3")}
	if err := c.ReplacePlaylistTracks(context.Background(), f.playlist, order); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	entries, err := ReadPlaylist(f.playlist)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !slices.Equal(entries, []string{"c.mp3", "a.mp3", "b.mp3"}) {
		t.Errorf("Unexpected entries %v", entries)
	}
}

// TestBuildFromLocalCatalog verifies a table can be built end to end from files
func TestBuildFromLocalCatalog(t *testing.T) {
	f := newFixture(t)

	table, err := playlist.Build(context.Background(), New(""), f.playlist, playlist.DefaultBuildOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if table.Len() != 3 || table.Name != "mix" {
		t.Errorf("Expected 3 rows named mix, got %d named %q", table.Len(), table.Name)
	}

	// b and c have no analysis sidecar, so the global counts collapse to zero
	if table.Counts != (playlist.Counts{}) {
		t.Errorf("Expected zero counts, got %+v", table.Counts)
	}
}

// TestTagFeatures verifies the tag fallback needs both tempo and key
func TestTagFeatures(t *testing.T) {
	tags := &TrackTags{Key: "8A", Energy: 6, BPM: 174}

	feat := tags.Features("x")
	if feat == nil {
		t.Fatal("Expected features from tags")
	}
	if feat.Key != 9 || feat.Mode != 0 || feat.Tempo != 174 || feat.Energy != 0.6 {
		t.Errorf("Unexpected features %+v", feat)
	}

	if (&TrackTags{Key: "8A"}).Features("x") != nil {
		t.Error("Expected nil without BPM")
	}
	if (&TrackTags{BPM: 120, Key: "bad"}).Features("x") != nil {
		t.Error("Expected nil without a valid key")
	}
}

// TestExtractKeyAndEnergy verifies comment parsing
func TestExtractKeyAndEnergy(t *testing.T) {
	tests := []struct {
		comment string
		key     string
		energy  int
	}{
		{"8A - Energy 6", "8A", 6},
		{"12B - Energy 10", "12B", 10},
		{"no key here", "", 0},
	}

	for _, tt := range tests {
		if got := extractKey(tt.comment); got != tt.key {
			t.Errorf("extractKey(%q) = %q, want %q", tt.comment, got, tt.key)
		}
		if got := extractEnergy(tt.comment); got != tt.energy {
			t.Errorf("extractEnergy(%q) = %d, want %d", tt.comment, got, tt.energy)
		}
	}
}
