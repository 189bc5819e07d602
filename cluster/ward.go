// ABOUTME: Hierarchical agglomerative clustering with Ward linkage cut at a distance threshold
// ABOUTME: Labels are canonicalized by centroid so they do not depend on row order

// Package cluster groups playlist rows into clusters of similar tracks.
package cluster

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the dendrogram cut height.
const DefaultThreshold = 3.0

// Ward clusters the rows of points bottom-up, always merging the pair whose
// merge grows within-cluster variance least, and stops once the cheapest merge
// height reaches threshold. It returns one label per row; labels are dense but
// otherwise arbitrary (see Canonical).
//
// Merge heights follow the Lance-Williams recurrence on Euclidean distances, so
// two singletons merge at their Euclidean distance.
func Ward(points mat.Matrix, threshold float64) []int {
	n, c := points.Dims()
	if n <= 1 {
		return make([]int, n)
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, points)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range i {
			d := floats.Distance(rows[i], rows[j], 2)
			dist[i][j], dist[j][i] = d, d
		}
	}

	size := make([]int, n)
	parent := make([]int, n)
	active := make([]bool, n)
	for i := range n {
		size[i] = 1
		parent[i] = i
		active[i] = true
	}

	for range n - 1 {
		a, b := -1, -1
		best := math.Inf(1)
		for i := range n {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && dist[i][j] < best {
					a, b, best = i, j, dist[i][j]
				}
			}
		}

		if a < 0 || best >= threshold {
			break
		}

		// Merge b into a
		na, nb := float64(size[a]), float64(size[b])
		for k := range n {
			if !active[k] || k == a || k == b {
				continue
			}
			nk := float64(size[k])
			total := na + nb + nk
			sq := ((na+nk)*dist[a][k]*dist[a][k] + (nb+nk)*dist[b][k]*dist[b][k] - nk*best*best) / total
			d := math.Sqrt(math.Max(sq, 0))
			dist[a][k], dist[k][a] = d, d
		}

		size[a] += size[b]
		active[b] = false
		parent[b] = a
	}

	roots := make(map[int]int)
	labels := make([]int, n)
	for i := range n {
		r := find(parent, i)
		if _, ok := roots[r]; !ok {
			roots[r] = len(roots)
		}
		labels[i] = roots[r]
	}

	return labels
}

func find(parent []int, i int) int {
	for parent[i] != i {
		i = parent[i]
	}

	return i
}

// Canonical renumbers labels so clusters are ordered by the lexicographic
// order of their centroids over keys (one row per label). Equal centroids keep
// the order of first appearance.
func Canonical(labels []int, keys [][]float64) []int {
	type group struct {
		label    int
		centroid []float64
	}

	var groups []*group
	byLabel := make(map[int]*group)
	counts := make(map[int]int)
	for i, l := range labels {
		g, ok := byLabel[l]
		if !ok {
			g = &group{label: l, centroid: make([]float64, len(keys[i]))}
			byLabel[l] = g
			groups = append(groups, g)
		}
		floats.Add(g.centroid, keys[i])
		counts[l]++
	}

	for _, g := range groups {
		floats.Scale(1/float64(counts[g.label]), g.centroid)
	}

	slices.SortStableFunc(groups, func(x, y *group) int {
		return slices.CompareFunc(x.centroid, y.centroid, cmp.Compare[float64])
	})

	rank := make(map[int]int, len(groups))
	for i, g := range groups {
		rank[g.label] = i
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = rank[l]
	}

	return out
}

// Count returns the number of distinct labels.
func Count(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}

	return len(seen)
}
