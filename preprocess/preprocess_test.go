// ABOUTME: Tests for artist encoding, scaling and PCA reduction
// ABOUTME: Checks scaling ranges, component fallback and distance preservation under full-rank PCA

package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestEncodeArtists(t *testing.T) {
	codes := EncodeArtists([]string{"b", "", "a", "b"})
	assert.Equal(t, []float64{2, 0, 1, 2}, codes)
}

func TestEncodeArtistsOrderIndependent(t *testing.T) {
	a := EncodeArtists([]string{"x", "y", "z"})
	b := EncodeArtists([]string{"z", "x", "y"})
	assert.Equal(t, []float64{0, 1, 2}, a)
	assert.Equal(t, []float64{2, 0, 1}, b)
}

func TestMinMaxScale(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 7,
		3, 7,
		5, 7,
	})
	MinMaxScale(m)

	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, m))
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 1, m), "constant column")
}

func TestRobustThenMinMaxMatchesMinMax(t *testing.T) {
	data := []float64{
		1, 10,
		2, 20,
		3, 35,
		4, 40,
		100, 41,
	}
	robust := mat.NewDense(5, 2, append([]float64(nil), data...))
	plain := mat.NewDense(5, 2, append([]float64(nil), data...))

	RobustScale(robust)
	MinMaxScale(robust)
	MinMaxScale(plain)

	assert.True(t, mat.EqualApprox(robust, plain, 1e-12))
}

func TestRobustScaleConstantColumn(t *testing.T) {
	m := mat.NewDense(3, 1, []float64{4, 4, 4})
	RobustScale(m)
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 0, m))
}

func TestLight(t *testing.T) {
	features := [][]float64{{1, 100}, {2, 200}, {3, 300}}
	m := Light(features, []string{"b", "a", ""})

	r, c := m.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 3, c, "features plus artist column")
	assert.Equal(t, []float64{1, 0.5, 0}, mat.Col(nil, 2, m))

	for _, row := range Rows(m) {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestFullComponentCount(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		cols     int
		wantCols int
	}{
		{"many samples", 20, 30, 10},
		{"few samples", 4, 30, 4},
		{"few features", 30, 5, 6},
		{"single sample", 1, 12, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := make([][]float64, tt.rows)
			artists := make([]string, tt.rows)
			for i := range features {
				features[i] = make([]float64, tt.cols)
				for j := range features[i] {
					features[i][j] = math.Sin(float64(i*tt.cols + j))
				}
				artists[i] = string(rune('a' + i%3))
			}

			m := Full(features, artists, DefaultMaxComponents)
			r, c := m.Dims()
			assert.Equal(t, tt.rows, r)
			assert.Equal(t, tt.wantCols, c)
		})
	}
}

func TestFullIdenticalRows(t *testing.T) {
	features := [][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}, {1, 2, 3}}
	m := Full(features, []string{"a", "a", "a", "a"}, DefaultMaxComponents)

	for _, row := range Rows(m) {
		for _, v := range row {
			assert.InDelta(t, 0, v, 1e-12)
		}
	}
}

func TestReducePreservesDistancesAtFullRank(t *testing.T) {
	m := mat.NewDense(5, 3, []float64{
		0, 0, 1,
		1, 2, 0,
		3, 1, 1,
		0, 4, 2,
		2, 2, 5,
	})

	reduced := Reduce(mat.DenseCopyOf(m), DefaultMaxComponents)
	_, c := reduced.Dims()
	require.Equal(t, 3, c)

	before := Rows(m)
	after := Rows(reduced)
	for i := range before {
		for j := i + 1; j < len(before); j++ {
			assert.InDelta(t, floats.Distance(before[i], before[j], 2), floats.Distance(after[i], after[j], 2), 1e-9)
		}
	}
}
