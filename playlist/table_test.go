// ABOUTME: Tests for the playlist table
// ABOUTME: Verifies sort keys, insertion zero-fill, the writer guard and the JSON dump

package playlist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"playlist-simmer/catalog"
	"playlist-simmer/catalog/catalogtest"
)

func testTracks(energies ...float64) []*Track {
	tracks := make([]*Track, len(energies))
	for i, e := range energies {
		id := string(rune('a' + i))
		tracks[i] = NewTrack(catalogtest.Ref(id, "Track "+id, "Artist "+id), catalog.AudioFeatures{Energy: e}, catalogtest.Analysis(2, 120), DefaultConfidenceThreshold)
	}
	return tracks
}

// TestNewTableEmpty verifies the invalid playlist error
func TestNewTableEmpty(t *testing.T) {
	_, err := NewTable("p", "Empty", nil)
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("Expected ErrEmptyPlaylist, got %v", err)
	}
}

// TestNewTableSingleRow verifies a single track is a valid table
func TestNewTableSingleRow(t *testing.T) {
	table, err := NewTable("p", "One", testTracks(0.5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 row, got %d", table.Len())
	}
}

// TestNewTableUniformWidth verifies every row has one value per column
func TestNewTableUniformWidth(t *testing.T) {
	tracks := testTracks(0.1, 0.2)
	tracks = append(tracks, NewTrack(catalogtest.Ref("z", "Z", ""), catalog.AudioFeatures{}, catalogtest.Analysis(7, 90), DefaultConfidenceThreshold))

	table, err := NewTable("p", "Mixed", tracks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if table.Counts.Sections != 2 {
		t.Errorf("Expected global sections 2, got %d", table.Counts.Sections)
	}
	for i, r := range table.Rows {
		if len(r.Values) != len(table.Columns) {
			t.Errorf("Row %d: expected %d values, got %d", i, len(table.Columns), len(r.Values))
		}
	}
}

// TestSortByKeys verifies composite key ordering
func TestSortByKeys(t *testing.T) {
	table, _ := NewTable("p", "Keys", testTracks(0.1, 0.2, 0.3, 0.4))

	keys := [][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0}}
	for i, k := range keys {
		table.Rows[i].Outer, table.Rows[i].Inner, table.Rows[i].Suggest = k[0], k[1], k[2]
	}

	table.SortByKeys()

	want := []string{"d", "c", "b", "a"}
	if got := table.IDs(); !slices.Equal(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

// TestSortByColumn verifies single-feature ordering and key renumbering
func TestSortByColumn(t *testing.T) {
	table, _ := NewTable("p", "Energy", testTracks(0.9, 0.1, 0.5))

	if err := table.SortByColumn("energy"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"b", "c", "a"}
	if got := table.IDs(); !slices.Equal(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}

	for i, r := range table.Rows {
		if r.Outer != i || r.Inner != 0 || r.Suggest != 0 {
			t.Errorf("Row %d: expected keys (%d,0,0), got (%d,%d,%d)", i, i, r.Outer, r.Inner, r.Suggest)
		}
	}

	if err := table.SortByColumn("nope"); err == nil {
		t.Error("Expected error for unknown column")
	}
}

// TestInsertFillsMissing verifies inserted rows align by name and zero-fill
func TestInsertFillsMissing(t *testing.T) {
	table, _ := NewTable("p", "Insert", testTracks(0.1, 0.9))

	candidate := NewTrack(catalogtest.Ref("x", "X", "Other"), catalog.AudioFeatures{Energy: 0.5}, nil, DefaultConfidenceThreshold)
	fv := Extract(candidate, Counts{})

	row := table.Insert(candidate, fv, table.Rows[0].Outer, table.Rows[0].Inner, 1)
	table.SortByKeys()

	if got := table.IDs(); !slices.Equal(got, []string{"a", "x", "b"}) {
		t.Errorf("Expected inserted row between a and b, got %v", got)
	}

	if got := row.Values[table.ColumnIndex("energy")]; got != 0.5 {
		t.Errorf("Expected energy 0.5, got %v", got)
	}
	if got := row.Values[table.ColumnIndex("section_start_0")]; got != 0 {
		t.Errorf("Expected zero-filled section column, got %v", got)
	}
}

// TestAcquire verifies the single writer guard
func TestAcquire(t *testing.T) {
	table, _ := NewTable("p", "Guard", testTracks(0.1))

	release, err := table.Acquire()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := table.Acquire(); !errors.Is(err, ErrTableBusy) {
		t.Errorf("Expected ErrTableBusy, got %v", err)
	}

	release()

	release, err = table.Acquire()
	if err != nil {
		t.Errorf("Expected table free after release, got %v", err)
	}
	release()
}

// TestClone verifies clones do not share rows
func TestClone(t *testing.T) {
	table, _ := NewTable("p", "Clone", testTracks(0.1, 0.2))

	c := table.Clone()
	c.Rows[0].Outer = 99
	c.Rows[0].Values[0] = 42

	if table.Rows[0].Outer == 99 || table.Rows[0].Values[0] == 42 {
		t.Error("Clone shares row state with the original")
	}
}

// TestDump verifies the JSON dump preserves row order and fields
func TestDump(t *testing.T) {
	tracks := testTracks(0.1, 0.2)
	tracks = append(tracks, NewTrack(catalogtest.Ref("c", "No Artist", ""), catalog.AudioFeatures{}, catalogtest.Analysis(2, 120), DefaultConfidenceThreshold))

	table, _ := NewTable("p", "Dump", tracks)
	table.Rows[0], table.Rows[2] = table.Rows[2], table.Rows[0]

	path := filepath.Join(t.TempDir(), "dump.json")
	if err := table.Dump(path); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read dump: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("Dump is not a JSON array: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	if records[0]["id"] != "c" || records[2]["id"] != "a" {
		t.Errorf("Expected row order preserved, got %v, %v", records[0]["id"], records[2]["id"])
	}
	if records[0]["artist"] != nil {
		t.Errorf("Expected null artist, got %v", records[0]["artist"])
	}
	if records[1]["energy"] != 0.2 {
		t.Errorf("Expected energy 0.2, got %v", records[1]["energy"])
	}
	for _, key := range []string{KeyOuter, KeyInner, KeySuggest, "section_tempo_1"} {
		if _, ok := records[1][key]; !ok {
			t.Errorf("Missing field %s", key)
		}
	}
}

// TestDumpFeatureRecordFields verifies duration, time signature and uri reach the dump
func TestDumpFeatureRecordFields(t *testing.T) {
	features := catalog.AudioFeatures{Tempo: 120, DurationMs: 210000, TimeSignature: 4}
	tr := NewTrack(catalogtest.Ref("a", "Long One", "X"), features, nil, DefaultConfidenceThreshold)

	table, err := NewTable("p", "Fields", []*Track{tr})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "dump.json")
	if err := table.Dump(path); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read dump: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("Dump is not a JSON array: %v", err)
	}

	tests := []struct {
		key  string
		want any
	}{
		{"duration_ms", float64(210000)},
		{"time_signature", float64(4)},
		{"uri", "spotify:track:a"},
	}

	for _, tt := range tests {
		got, ok := records[0][tt.key]
		if !ok {
			t.Errorf("Missing field %s", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
		}
	}
}
