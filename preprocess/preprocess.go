// ABOUTME: Feature preprocessing before clustering and tours: artist encoding, scaling, PCA
// ABOUTME: Full pipeline is robust+min-max scaling then PCA; the light variant is min-max only

// Package preprocess turns a playlist feature table into the numeric matrix the
// evaluators measure distances on.
package preprocess

import (
	"log"
	"maps"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultMaxComponents caps the PCA output width.
const DefaultMaxComponents = 10

// EncodeArtists maps artist names to codes in sorted order of distinct names.
// An unknown artist (empty string) sorts first.
func EncodeArtists(artists []string) []float64 {
	seen := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		seen[a] = struct{}{}
	}

	codes := make(map[string]float64, len(seen))
	for i, name := range slices.Sorted(maps.Keys(seen)) {
		codes[name] = float64(i)
	}

	out := make([]float64, len(artists))
	for i, a := range artists {
		out[i] = codes[a]
	}

	return out
}

// Full scales features with RobustScale then MinMaxScale, appends the unscaled
// artist codes as the last column and reduces the result with PCA to at most
// maxComponents columns.
func Full(features [][]float64, artists []string, maxComponents int) *mat.Dense {
	m := fromRows(features)
	RobustScale(m)
	MinMaxScale(m)

	return Reduce(appendColumn(m, EncodeArtists(artists)), maxComponents)
}

// Light appends the artist codes to features and min-max scales every column.
func Light(features [][]float64, artists []string) *mat.Dense {
	m := appendColumn(fromRows(features), EncodeArtists(artists))
	MinMaxScale(m)

	return m
}

// Raw appends the artist codes to features without scaling.
func Raw(features [][]float64, artists []string) *mat.Dense {
	return appendColumn(fromRows(features), EncodeArtists(artists))
}

// RobustScale centers each column on its median and divides by its interquartile
// range. Columns with zero IQR are only centered.
func RobustScale(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)
	sorted := make([]float64, r)

	for j := range c {
		mat.Col(col, j, m)
		copy(sorted, col)
		slices.Sort(sorted)

		median := stat.Quantile(0.5, stat.LinInterp, sorted, nil)
		iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		if iqr == 0 {
			iqr = 1
		}

		for i := range col {
			col[i] = (col[i] - median) / iqr
		}
		m.SetCol(j, col)
	}
}

// MinMaxScale rescales each column into [0, 1]. Constant columns become zero.
func MinMaxScale(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)

	for j := range c {
		mat.Col(col, j, m)
		lo, hi := slices.Min(col), slices.Max(col)

		span := hi - lo
		if span == 0 {
			span = 1
		}

		for i := range col {
			col[i] = (col[i] - lo) / span
		}
		m.SetCol(j, col)
	}
}

// Reduce projects the rows of m onto its leading principal components. The
// component count falls back to min(samples, features) when either is smaller
// than maxComponents. A failed decomposition returns m unchanged.
func Reduce(m *mat.Dense, maxComponents int) *mat.Dense {
	if maxComponents <= 0 {
		maxComponents = DefaultMaxComponents
	}

	r, c := m.Dims()
	if r == 0 {
		return m
	}

	k := min(maxComponents, r, c)
	if k < maxComponents {
		log.Printf("WARN preprocess: %d samples x %d features, reducing to %d components instead of %d", r, c, k, maxComponents)
	}

	// A single centered sample projects to the origin
	if r == 1 {
		return mat.NewDense(1, k, nil)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		log.Printf("WARN preprocess: principal components analysis failed, keeping %d scaled features", c)
		return m
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centered := mat.DenseCopyOf(m)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, centered)
		mean := stat.Mean(col, nil)
		for i := range col {
			col[i] -= mean
		}
		centered.SetCol(j, col)
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, c, 0, k))

	return &proj
}

// Rows copies m into one slice per row.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range r {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}

	return out
}

func fromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return &mat.Dense{}
	}

	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}

	return m
}

func appendColumn(m *mat.Dense, col []float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c+1, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(m)
	out.SetCol(c, col)

	return out
}
