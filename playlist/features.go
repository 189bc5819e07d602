// ABOUTME: Aggregates a track's scalar features and analysis series into a fixed-width vector
// ABOUTME: Section, bar, beat and tatum events are split into contiguous groups and averaged

package playlist

import (
	"fmt"
	"slices"

	"playlist-simmer/catalog"
)

// ScalarFeatures are the catalog feature fields copied verbatim into every vector, in column order.
var ScalarFeatures = []string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"key",
	"liveness",
	"loudness",
	"mode",
	"speechiness",
	"tempo",
	"valence",
}

// sectionColumns are the section fields averaged per group.
var sectionColumns = []string{"start", "loudness", "tempo", "key", "mode", "time_signature"}

// Counts holds the number of groups for each aggregated series.
// Within a playlist these are global: the minimum across all tracks.
type Counts struct {
	Bars     int `json:"num_bars"`
	Beats    int `json:"num_beats"`
	Sections int `json:"num_sections"`
	Tatums   int `json:"num_tatums"`
}

// Width returns the vector width produced by Extract for these counts.
func (c Counts) Width() int {
	w := len(ScalarFeatures) + len(sectionColumns)*c.Sections
	for _, n := range []int{c.Bars, c.Beats, c.Tatums} {
		if n > 0 {
			w += n
		}
	}

	return w
}

// GlobalCounts returns the per-series minimum across tracks.
func GlobalCounts(tracks []*Track) Counts {
	if len(tracks) == 0 {
		return Counts{}
	}

	c := tracks[0].Counts()
	for _, t := range tracks[1:] {
		tc := t.Counts()
		c.Bars = min(c.Bars, tc.Bars)
		c.Beats = min(c.Beats, tc.Beats)
		c.Sections = min(c.Sections, tc.Sections)
		c.Tatums = min(c.Tatums, tc.Tatums)
	}

	return c
}

// FeatureVector is the flat numeric record of one track.
// Names and Values are parallel; Artist passes through unchanged.
type FeatureVector struct {
	Names  []string
	Values []float64
	Artist string
}

// Map returns the vector as a name to value map.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Names))
	for i, name := range v.Names {
		m[name] = v.Values[i]
	}

	return m
}

// ColumnNames returns the vector column names for the given counts.
func ColumnNames(c Counts) []string {
	names := make([]string, 0, c.Width())
	names = append(names, ScalarFeatures...)

	for g := range c.Sections {
		for _, col := range sectionColumns {
			names = append(names, fmt.Sprintf("section_%s_%d", col, g))
		}
	}

	for _, family := range []struct {
		name string
		n    int
	}{{"bars", c.Bars}, {"beats", c.Beats}, {"tatums", c.Tatums}} {
		for g := range family.n {
			names = append(names, fmt.Sprintf("%s_start_%d", family.name, g))
		}
	}

	return names
}

// Extract computes the feature vector of one track. The result depends only on the
// track and the counts; a zero count skips that series entirely.
func Extract(t *Track, c Counts) FeatureVector {
	values := make([]float64, 0, c.Width())
	values = append(values, ScalarValues(t.Features)...)

	sections := make([][]float64, len(t.Sections))
	for i, s := range t.Sections {
		sections[i] = []float64{
			s.Start,
			s.Loudness,
			s.Tempo,
			float64(s.Key),
			float64(s.Mode),
			float64(s.TimeSignature),
		}
	}
	values = append(values, groupMeans(sections, len(sectionColumns), c.Sections)...)

	for _, series := range []struct {
		events []catalog.TimeInterval
		n      int
	}{{t.Bars, c.Bars}, {t.Beats, c.Beats}, {t.Tatums, c.Tatums}} {
		starts := make([][]float64, len(series.events))
		for i, ev := range series.events {
			starts[i] = []float64{ev.Start}
		}
		values = append(values, groupMeans(starts, 1, series.n)...)
	}

	return FeatureVector{
		Names:  ColumnNames(c),
		Values: values,
		Artist: t.Artist,
	}
}

// ScalarValues returns the scalar feature block in ScalarFeatures order.
func ScalarValues(f catalog.AudioFeatures) []float64 {
	return []float64{
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Instrumentalness,
		float64(f.Key),
		f.Liveness,
		f.Loudness,
		float64(f.Mode),
		f.Speechiness,
		f.Tempo,
		f.Valence,
	}
}

// ScalarsByName picks the named scalar features. Unknown names read as zero.
func ScalarsByName(f catalog.AudioFeatures, names []string) []float64 {
	all := ScalarValues(f)

	out := make([]float64, len(names))
	for i, name := range names {
		if idx := slices.Index(ScalarFeatures, name); idx >= 0 {
			out[i] = all[idx]
		}
	}

	return out
}

// groupMeans splits rows of the given width into k contiguous groups and returns the column means of
// each group, group by group. The last len(rows)%k groups hold one extra row.
// An empty group contributes zeros.
func groupMeans(rows [][]float64, width, k int) []float64 {
	if k <= 0 {
		return nil
	}

	out := make([]float64, 0, k*width)
	base, extra := len(rows)/k, len(rows)%k
	pos := 0

	for g := range k {
		size := base
		if g >= k-extra {
			size++
		}

		sums := make([]float64, width)
		for _, row := range rows[pos : pos+size] {
			for j, v := range row {
				sums[j] += v
			}
		}
		pos += size

		for j := range sums {
			if size > 0 {
				sums[j] /= float64(size)
			}
		}
		out = append(out, sums...)
	}

	return out
}
