// ABOUTME: Distance matrices over feature rows, the contrast-maximizing inversion and detour paths
// ABOUTME: Detour finds the shortest path between two nodes that avoids their direct edge

package tour

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix returns the pairwise Euclidean distances between the rows of points.
// With truncate set each distance is truncated to an integer.
func DistanceMatrix(points mat.Matrix, truncate bool) *mat.SymDense {
	r, c := points.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, points)
	}

	return distances(rows, truncate)
}

// DistanceMatrixRows is DistanceMatrix over plain slices.
func DistanceMatrixRows(rows [][]float64, truncate bool) *mat.SymDense {
	return distances(rows, truncate)
}

func distances(rows [][]float64, truncate bool) *mat.SymDense {
	n := len(rows)
	if n == 0 {
		return &mat.SymDense{}
	}

	d := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			dist := floats.Distance(rows[i], rows[j], 2)
			if truncate {
				dist = math.Trunc(dist)
			}
			d.SetSym(i, j, dist)
		}
	}

	return d
}

// Sum adds every entry of d.
func Sum(d mat.Symmetric) float64 {
	n := d.SymmetricDim()
	var total float64
	for i := range n {
		for j := range n {
			total += d.At(i, j)
		}
	}

	return total
}

// Invert rewrites d so the most different pairs look closest: every entry is
// negated, shifted by the magnitude of the smallest negated entry plus offset,
// and the diagonal is reset to zero.
func Invert(d *mat.SymDense, offset float64) {
	n := d.SymmetricDim()
	if n == 0 {
		return
	}

	lowest := math.Inf(1)
	for i := range n {
		for j := i; j < n; j++ {
			lowest = math.Min(lowest, -d.At(i, j))
		}
	}
	shift := math.Abs(lowest) + offset

	for i := range n {
		for j := i; j < n; j++ {
			if i == j {
				d.SetSym(i, j, 0)
				continue
			}
			d.SetSym(i, j, shift-d.At(i, j))
		}
	}
}

// Detour returns the shortest path from one node to another over the complete
// graph of d with their direct edge removed, and its weight. The path holds at
// least one intermediate node when d has more than two nodes; it is nil otherwise.
func Detour(d mat.Symmetric, from, to int) ([]int, float64) {
	n := d.SymmetricDim()
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range n {
		g.AddNode(simple.Node(i))
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if (i == from && j == to) || (i == to && j == from) {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: d.At(i, j)})
		}
	}

	shortest := path.DijkstraFrom(simple.Node(from), g)
	nodes, weight := shortest.To(int64(to))
	if len(nodes) < 3 {
		return nil, math.Inf(1)
	}

	out := make([]int, len(nodes))
	for i, node := range nodes {
		out[i] = int(node.ID())
	}

	return out, weight
}
