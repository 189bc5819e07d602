// ABOUTME: Open-path tour approximation over a symmetric distance matrix
// ABOUTME: Christofides-style cycle, heaviest edge dropped, then 2-opt polish of the open path

// Package tour orders nodes of a distance matrix into a short open path.
//
// The solver builds a minimum spanning tree, pairs its odd-degree vertices
// greedily, walks the resulting multigraph with Hierholzer's algorithm and
// shortcuts revisits into a Hamiltonian cycle. The heaviest cycle edge is
// removed to open the path, which is then improved with 2-opt. The result is
// an approximation, never a guaranteed optimum.
package tour

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Options tunes Solve.
type Options struct {
	// TwoOpt polishes the open path with 2-opt segment reversals
	TwoOpt bool

	// Debugf receives solver diagnostics when set
	Debugf func(format string, args ...any)

	// Recovered is called when the heuristic path had to be repaired
	Recovered func()
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{TwoOpt: true}
}

func (o Options) debugf(format string, args ...any) {
	if o.Debugf != nil {
		o.Debugf(format, args...)
	}
}

// Solve returns an open path visiting every node of d exactly once.
// Paths for fewer than two nodes are returned without running the solver.
func Solve(d mat.Symmetric, opts Options) []int {
	n := d.SymmetricDim()
	switch n {
	case 0:
		return []int{}
	case 1:
		return []int{0}
	case 2:
		return []int{0, 1}
	}

	cycle := christofides(d)
	path := openCycle(d, cycle)

	if opts.TwoOpt {
		moves := twoOpt(d, path)
		opts.debugf("[TOUR] 2-opt applied %d moves over %d nodes", moves, n)
	}

	path, repaired := Recover(path, n)
	if repaired && opts.Recovered != nil {
		opts.Recovered()
	}

	return path
}

// Recover turns a heuristic path into a permutation of 0..n-1: out-of-range
// and repeated nodes are dropped keeping first-seen order, and missing nodes
// are appended in ascending order. A mismatch is logged and reported as
// repaired, never returned as an error.
func Recover(path []int, n int) (out []int, repaired bool) {
	seen := make([]bool, n)
	out = make([]int, 0, n)
	for _, v := range path {
		if v < 0 || v >= n || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}

	if len(path) == n && len(out) == n {
		return out, false
	}

	log.Printf("WARN tour: path length does not match distance matrix size (%d != %d)", len(path), n)

	for v := range n {
		if !seen[v] {
			out = append(out, v)
		}
	}

	return out, true
}

// Positions returns the inverse permutation of path: the node visited k-th gets k.
func Positions(path []int) []int {
	pos := make([]int, len(path))
	for k, v := range path {
		pos[v] = k
	}

	return pos
}

// Cost sums the edge weights along path.
func Cost(d mat.Symmetric, path []int) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += d.At(path[i-1], path[i])
	}

	return total
}

func christofides(d mat.Symmetric) []int {
	n := d.SymmetricDim()
	adj := minimumSpanningTree(d)

	var odd []int
	for v := range n {
		if len(adj[v])%2 == 1 {
			odd = append(odd, v)
		}
	}
	matchOdd(d, odd, adj)

	return shortcut(eulerianCircuit(adj, 0), n)
}

// minimumSpanningTree runs Prim's algorithm on the complete graph. Ties go to
// the lower node index.
func minimumSpanningTree(d mat.Symmetric) [][]int {
	n := d.SymmetricDim()
	inTree := make([]bool, n)
	best := make([]float64, n)
	parent := make([]int, n)
	adj := make([][]int, n)

	for v := range best {
		best[v] = math.Inf(1)
		parent[v] = -1
	}
	best[0] = 0

	for range n {
		u := -1
		for v := range n {
			if !inTree[v] && (u < 0 || best[v] < best[u]) {
				u = v
			}
		}

		inTree[u] = true
		if p := parent[u]; p >= 0 {
			adj[u] = append(adj[u], p)
			adj[p] = append(adj[p], u)
		}

		for v := range n {
			if w := d.At(u, v); !inTree[v] && w < best[v] {
				best[v] = w
				parent[v] = u
			}
		}
	}

	return adj
}

// matchOdd greedily pairs each remaining odd vertex with its nearest partner
// and adds the pairing edges to adj.
func matchOdd(d mat.Symmetric, odd []int, adj [][]int) {
	remaining := append([]int(nil), odd...)
	for len(remaining) > 1 {
		u := remaining[0]
		remaining = remaining[1:]

		bestIdx := 0
		for i, v := range remaining {
			if d.At(u, v) < d.At(u, remaining[bestIdx]) {
				bestIdx = i
			}
		}

		v := remaining[bestIdx]
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
}

// eulerianCircuit walks every multigraph edge once with Hierholzer's algorithm.
func eulerianCircuit(adj [][]int, start int) []int {
	edges := make([][]int, len(adj))
	for u := range adj {
		edges[u] = append([]int(nil), adj[u]...)
	}

	var circuit []int
	stack := []int{start}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		if len(edges[u]) == 0 {
			circuit = append(circuit, u)
			stack = stack[:len(stack)-1]
			continue
		}

		v := edges[u][len(edges[u])-1]
		edges[u] = edges[u][:len(edges[u])-1]
		for i, x := range edges[v] {
			if x == u {
				edges[v] = append(edges[v][:i], edges[v][i+1:]...)
				break
			}
		}
		stack = append(stack, v)
	}

	return circuit
}

// shortcut keeps the first visit of every node in walk.
func shortcut(walk []int, n int) []int {
	seen := make([]bool, n)
	cycle := make([]int, 0, n)
	for _, v := range walk {
		if !seen[v] {
			seen[v] = true
			cycle = append(cycle, v)
		}
	}

	return cycle
}

// openCycle removes the heaviest edge of the closed cycle and returns the
// remaining path starting right after it.
func openCycle(d mat.Symmetric, cycle []int) []int {
	n := len(cycle)
	cut, heaviest := 0, math.Inf(-1)
	for k := range n {
		if w := d.At(cycle[k], cycle[(k+1)%n]); w > heaviest {
			cut, heaviest = k, w
		}
	}

	path := make([]int, 0, n)
	path = append(path, cycle[cut+1:]...)
	path = append(path, cycle[:cut+1]...)

	return path
}

// twoOpt reverses segments of the open path while that shortens it and
// returns the number of accepted moves.
func twoOpt(d mat.Symmetric, path []int) int {
	n := len(path)

	const maxIterations = 1000
	const epsilon = 1e-10

	moves := 0
	improved := true
	for iteration := 0; improved && iteration < maxIterations; iteration++ {
		improved = false

		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				var delta float64
				if i > 0 {
					delta += d.At(path[i-1], path[j]) - d.At(path[i-1], path[i])
				}
				if j < n-1 {
					delta += d.At(path[i], path[j+1]) - d.At(path[j], path[j+1])
				}

				if delta >= -epsilon {
					continue
				}

				reverseSegment(path, i, j)
				moves++
				improved = true
			}
		}
	}

	return moves
}

// reverseSegment reverses path[start:end+1] in place
func reverseSegment(path []int, start, end int) {
	for start < end {
		path[start], path[end] = path[end], path[start]
		start++
		end--
	}
}
