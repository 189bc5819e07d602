// ABOUTME: Clustering evaluator: Ward outer clusters, tours inside each cluster, then a tour over clusters
// ABOUTME: Sort keys are (outer cluster rank, position inside the cluster)

package evaluator

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"playlist-simmer/cluster"
	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
	"playlist-simmer/tour"
)

// Clustering groups similar tracks, orders each group by a short tour and then
// orders the groups so the jump from one group's last track to the next
// group's first track is small.
type Clustering struct {
	Suggester
	opts Options
}

// NewClustering returns a clustering evaluator.
func NewClustering(opts Options) *Clustering {
	return &Clustering{Suggester: Suggester{opts: opts.Suggest}, opts: opts}
}

// Name implements Evaluator.
func (c *Clustering) Name() string { return "clustering" }

// Reorder implements Evaluator.
func (c *Clustering) Reorder(ctx context.Context, t *playlist.Table) error {
	return withTable(ctx, t, "evaluator.Clustering.Reorder", func(ctx context.Context, span trace.Span) error {
		n := c.clusterRows(ctx, t)
		span.SetAttributes(attribute.Int("clusters", n))

		c.orderWithinClusters(ctx, t)
		c.orderClusters(ctx, t)

		return nil
	})
}

// clusterRows assigns outer labels and sorts by them. It returns the cluster count.
func (c *Clustering) clusterRows(ctx context.Context, t *playlist.Table) int {
	_, span := tracer.Start(ctx, "evaluator.Clustering.cluster")
	defer span.End()

	n := t.Len()

	var labels []int
	if n <= 1 {
		labels = make([]int, n)
		for i := range labels {
			labels[i] = i
		}
	} else {
		reduced := preprocess.Full(t.Matrix(), t.Artists(), c.opts.MaxComponents)
		labels = cluster.Canonical(cluster.Ward(reduced, c.opts.DistanceThreshold), featureRows(t))
	}

	for i, r := range t.Rows {
		r.Outer, r.Inner, r.Suggest = labels[i], 0, 0
	}
	t.SortByKeys()

	clusters := cluster.Count(labels)
	c.opts.debugf("[CLUSTER] Playlist %s with %d songs has %d clusters", t.PlaylistID, n, clusters)

	return clusters
}

// orderWithinClusters sets each row's inner key to its position on a tour
// through its own cluster, then sorts by (outer, inner).
func (c *Clustering) orderWithinClusters(ctx context.Context, t *playlist.Table) {
	_, span := tracer.Start(ctx, "evaluator.Clustering.inner")
	defer span.End()

	points := featureRows(t)

	for _, members := range groups(t) {
		if len(members) <= 1 {
			continue
		}

		rows := make([][]float64, len(members))
		for i, idx := range members {
			rows[i] = points[idx]
		}

		d := tour.DistanceMatrixRows(rows, c.opts.TruncateDistances)

		var positions []int
		if tour.Sum(d) == 0 {
			// Identical tracks: the current order is already a zero-cost path
			positions = make([]int, len(members))
			for i := range positions {
				positions[i] = i
			}
		} else {
			positions = tour.Positions(tour.Solve(d, c.opts.Tour))
		}

		for i, idx := range members {
			t.Rows[idx].Inner = positions[i]
		}
	}

	t.SortByKeys()
}

// orderClusters solves a tour over clusters and concatenates them in that order.
func (c *Clustering) orderClusters(ctx context.Context, t *playlist.Table) {
	_, span := tracer.Start(ctx, "evaluator.Clustering.order")
	defer span.End()

	members := groups(t)
	k := len(members)
	if k <= 1 {
		return
	}

	points := featureRows(t)

	// cost[i][j] is the jump from the last track of cluster i to the first of cluster j
	cost := make([][]float64, k)
	for i, src := range members {
		cost[i] = make([]float64, k)
		last := points[src[len(src)-1]]
		for j, dst := range members {
			if i != j {
				cost[i][j] = floats.Distance(last, points[dst[0]], 2)
			}
		}
	}

	// The solver needs a symmetric matrix; direction is chosen afterwards
	d := mat.NewSymDense(k, nil)
	for i := range k {
		for j := i + 1; j < k; j++ {
			d.SetSym(i, j, (cost[i][j]+cost[j][i])/2)
		}
	}

	order := tour.Solve(d, c.opts.Tour)
	reversed := slices.Clone(order)
	slices.Reverse(reversed)
	if directedCost(cost, reversed) < directedCost(cost, order) {
		order = reversed
	}

	rows := make([]*playlist.Row, 0, t.Len())
	for rank, ci := range order {
		for _, idx := range members[ci] {
			r := t.Rows[idx]
			r.Outer = rank
			rows = append(rows, r)
		}
	}
	t.Rows = rows
	t.SortByKeys()
}

// groups returns row indices per outer label, in row order. Rows must be sorted by keys.
func groups(t *playlist.Table) [][]int {
	var out [][]int
	for i, r := range t.Rows {
		if i == 0 || r.Outer != t.Rows[i-1].Outer {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], i)
	}

	return out
}

func directedCost(cost [][]float64, order []int) float64 {
	var total float64
	for i := 1; i < len(order); i++ {
		total += cost[order[i-1]][order[i]]
	}

	return total
}
