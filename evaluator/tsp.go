// ABOUTME: Flat tour evaluators: TSP minimizes transitions, Chaos maximizes them
// ABOUTME: Both run one tour over all tracks and use the tour position as the outer sort key

package evaluator

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
	"playlist-simmer/tour"
)

// TSP orders the whole playlist along one short tour.
type TSP struct {
	Suggester
	opts Options
}

// NewTSP returns a TSP evaluator.
func NewTSP(opts Options) *TSP {
	return &TSP{Suggester: Suggester{opts: opts.Suggest}, opts: opts}
}

// Name implements Evaluator.
func (e *TSP) Name() string { return "tsp" }

// Reorder implements Evaluator.
func (e *TSP) Reorder(ctx context.Context, t *playlist.Table) error {
	return withTable(ctx, t, "evaluator.TSP.Reorder", func(_ context.Context, _ trace.Span) error {
		flatTour(t, e.opts, false)
		return nil
	})
}

// Chaos orders the playlist so consecutive tracks differ as much as possible.
type Chaos struct {
	Suggester
	opts Options
}

// NewChaos returns a Chaos evaluator.
func NewChaos(opts Options) *Chaos {
	return &Chaos{Suggester: Suggester{opts: opts.Suggest}, opts: opts}
}

// Name implements Evaluator.
func (e *Chaos) Name() string { return "chaos" }

// Reorder implements Evaluator.
func (e *Chaos) Reorder(ctx context.Context, t *playlist.Table) error {
	return withTable(ctx, t, "evaluator.Chaos.Reorder", func(_ context.Context, _ trace.Span) error {
		flatTour(t, e.opts, true)
		return nil
	})
}

// flatTour scales features, solves one tour over every row and sorts by tour
// position. With invert set the distances are inverted first so the tour
// prefers the largest jumps.
func flatTour(t *playlist.Table, opts Options, invert bool) {
	if t.Len() <= 1 {
		t.Renumber()
		return
	}

	d := tour.DistanceMatrix(preprocess.Light(t.Matrix(), t.Artists()), false)
	if invert {
		tour.Invert(d, opts.ChaosOffset)
	}

	positions := tour.Positions(tour.Solve(d, opts.Tour))
	for i, r := range t.Rows {
		r.Outer, r.Inner, r.Suggest = positions[i], 0, 0
	}
	t.SortByKeys()

	opts.debugf("[TOUR] Ordered %d tracks (inverted=%v)", t.Len(), invert)
}
