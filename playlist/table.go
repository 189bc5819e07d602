// ABOUTME: Typed in-memory playlist table: one row per track plus integer sort-key columns
// ABOUTME: Enforces a single active writer and serializes rows to a flat JSON array

package playlist

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync/atomic"
)

// Sort-key column names.
const (
	KeyOuter   = "outer"
	KeyInner   = "inner"
	KeySuggest = "suggest"
)

// UnavailableItem stands in for a playlist item the catalog no longer serves.
const UnavailableItem = "(unavailable)"

var (
	// ErrEmptyPlaylist is returned when construction yields no usable tracks.
	ErrEmptyPlaylist = errors.New("invalid playlist: no tracks")

	// ErrTableBusy is returned when a second writer tries to mutate a table.
	ErrTableBusy = errors.New("playlist table is busy")
)

// Row is one track in the table. Values is aligned with Table.Columns.
type Row struct {
	Track  *Track
	Values []float64

	// Sort keys. Sorting rows by (Outer, Inner, Suggest) yields the current order.
	Outer   int
	Inner   int
	Suggest int
}

// key returns the named sort key.
func (r *Row) key(name string) int {
	switch name {
	case KeyOuter:
		return r.Outer
	case KeyInner:
		return r.Inner
	default:
		return r.Suggest
	}
}

// Table owns the rows of a playlist. Row order is play order.
type Table struct {
	PlaylistID string
	Name       string
	Counts     Counts
	Columns    []string
	Rows       []*Row

	// Skipped lists catalog ids dropped during construction. References
	// without an id appear by name, unavailable items as UnavailableItem.
	Skipped []string

	writing atomic.Bool
}

// NewTable featurizes tracks with their global counts and assembles the table.
// Sort keys start as the input order.
func NewTable(playlistID, name string, tracks []*Track) (*Table, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyPlaylist
	}

	counts := GlobalCounts(tracks)
	t := &Table{
		PlaylistID: playlistID,
		Name:       name,
		Counts:     counts,
		Columns:    ColumnNames(counts),
		Rows:       make([]*Row, len(tracks)),
	}

	for i, tr := range tracks {
		fv := Extract(tr, counts)
		t.Rows[i] = &Row{Track: tr, Values: fv.Values, Outer: i}
	}

	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Acquire claims the table for one writer. The returned func releases it.
func (t *Table) Acquire() (func(), error) {
	if !t.writing.CompareAndSwap(false, true) {
		return nil, ErrTableBusy
	}

	return func() { t.writing.Store(false) }, nil
}

// ColumnIndex returns the position of a feature column, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// SortByKeys stably sorts rows by (outer, inner, suggest).
func (t *Table) SortByKeys() {
	slices.SortStableFunc(t.Rows, func(a, b *Row) int {
		for _, k := range []string{KeyOuter, KeyInner, KeySuggest} {
			if c := cmp.Compare(a.key(k), b.key(k)); c != 0 {
				return c
			}
		}
		return 0
	})
}

// SortByColumn stably sorts rows ascending by one feature column and
// renumbers the sort keys to match.
func (t *Table) SortByColumn(name string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("unknown column %q", name)
	}

	slices.SortStableFunc(t.Rows, func(a, b *Row) int {
		return cmp.Compare(a.Values[idx], b.Values[idx])
	})
	t.Renumber()

	return nil
}

// Renumber sets sort keys to the current row order.
func (t *Table) Renumber() {
	for i, r := range t.Rows {
		r.Outer, r.Inner, r.Suggest = i, 0, 0
	}
}

// Insert appends a row for a track outside the playlist. Values are aligned to the
// table's columns by name; columns the vector lacks are filled with zero.
func (t *Table) Insert(tr *Track, fv FeatureVector, outer, inner, suggest int) *Row {
	byName := fv.Map()
	values := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		values[i] = byName[col]
	}

	row := &Row{Track: tr, Values: values, Outer: outer, Inner: inner, Suggest: suggest}
	t.Rows = append(t.Rows, row)

	return row
}

// Matrix returns a copy of the feature values, one slice per row.
func (t *Table) Matrix() [][]float64 {
	m := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		m[i] = slices.Clone(r.Values)
	}

	return m
}

// Artists returns the primary artist of each row, empty when unknown.
func (t *Table) Artists() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Track.Artist
	}

	return out
}

// IDs returns the track ids in current order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.Track.ID
	}

	return ids
}

// Clone returns a deep copy of the rows. Tracks are shared since they are immutable.
func (t *Table) Clone() *Table {
	c := &Table{
		PlaylistID: t.PlaylistID,
		Name:       t.Name,
		Counts:     t.Counts,
		Columns:    slices.Clone(t.Columns),
		Rows:       make([]*Row, len(t.Rows)),
		Skipped:    slices.Clone(t.Skipped),
	}

	for i, r := range t.Rows {
		row := *r
		row.Values = slices.Clone(r.Values)
		c.Rows[i] = &row
	}

	return c
}

type field struct {
	name  string
	value any
}

// MarshalJSON encodes the table as a flat array of records in row order.
// Each record holds the track id, uri, name and artist (null when unknown), the
// duration and time signature from the feature record, every feature column
// and the sort keys.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, r := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}

		var artist, uri any
		if r.Track.Artist != "" {
			artist = r.Track.Artist
		}
		if r.Track.URI != "" {
			uri = r.Track.URI
		}

		fields := []field{
			{"id", r.Track.ID},
			{"uri", uri},
			{"name", r.Track.Name},
			{"artist", artist},
			{"duration_ms", r.Track.Features.DurationMs},
			{"time_signature", r.Track.Features.TimeSignature},
		}
		for j, col := range t.Columns {
			fields = append(fields, field{col, r.Values[j]})
		}
		fields = append(fields, field{KeyOuter, r.Outer}, field{KeyInner, r.Inner}, field{KeySuggest, r.Suggest})

		buf.WriteByte('{')
		for j, f := range fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(f.name)
			v, err := json.Marshal(f.value)
			if err != nil {
				return nil, fmt.Errorf("encode %s of %s: %w", f.name, r.Track.ID, err)
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// Dump writes the table to path as an indented JSON array.
func (t *Table) Dump(path string) error {
	raw, err := t.MarshalJSON()
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return fmt.Errorf("failed to indent dump: %w", err)
	}
	out.WriteByte('\n')

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}

	return nil
}
