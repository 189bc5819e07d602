// ABOUTME: Simmer entry point: reorder with one evaluator, optionally suggest, optionally publish
// ABOUTME: Every run gets a uuid that tags its trace span, metrics and debug output

package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"playlist-simmer/catalog"
	"playlist-simmer/metrics"
	"playlist-simmer/playlist"
)

// SimmerOptions controls one run.
type SimmerOptions struct {
	// Suggest inserts bridge tracks after reordering; it needs Recommender
	Suggest     bool
	Recommender catalog.Recommender

	// Publisher, when set, receives the final order
	Publisher catalog.Publisher

	Metrics *metrics.Run
	Debugf  func(format string, args ...any)
}

func (o SimmerOptions) debugf(format string, args ...any) {
	if o.Debugf != nil {
		o.Debugf(format, args...)
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	IDs      []string
	Inserted []Suggestion
	// Clusters is the outer cluster count for the clustering evaluator, zero otherwise
	Clusters int
}

// Simmer reorders t with ev, optionally inserts suggestions and publishes the
// final order. The table is left in its final order.
func Simmer(ctx context.Context, t *playlist.Table, ev Evaluator, opts SimmerOptions) (Result, error) {
	res := Result{RunID: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "evaluator.Simmer", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("evaluator", ev.Name()),
		attribute.String("playlist.id", t.PlaylistID),
		attribute.Int("playlist.tracks", t.Len()),
	))
	defer span.End()

	fail := func(err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	opts.debugf("[SIMMER] run %s: %s over %d tracks", res.RunID, ev.Name(), t.Len())

	start := time.Now()
	if err := ev.Reorder(ctx, t); err != nil {
		return fail(fmt.Errorf("reorder: %w", err))
	}
	opts.Metrics.ObserveStage("reorder", start)

	if _, ok := ev.(*Clustering); ok {
		res.Clusters = distinctOuter(t)
		opts.Metrics.Clusters(res.Clusters)
	}

	if opts.Suggest && opts.Recommender != nil {
		start = time.Now()
		inserted, err := ev.Suggest(ctx, t, opts.Recommender)
		res.Inserted = inserted
		opts.Metrics.SuggestionsInserted(len(inserted))
		if err != nil {
			return fail(fmt.Errorf("suggest: %w", err))
		}
		opts.Metrics.ObserveStage("suggest", start)
		opts.debugf("[SIMMER] run %s: inserted %d suggestions", res.RunID, len(inserted))
	}

	res.IDs = t.IDs()

	if opts.Publisher != nil {
		start = time.Now()
		if err := opts.Publisher.ReplacePlaylistTracks(ctx, t.PlaylistID, res.IDs); err != nil {
			return fail(fmt.Errorf("publish: %w", err))
		}
		opts.Metrics.ObserveStage("publish", start)
	}

	span.SetAttributes(attribute.Int("result.tracks", len(res.IDs)), attribute.Int("result.inserted", len(res.Inserted)))

	return res, nil
}

func distinctOuter(t *playlist.Table) int {
	seen := make(map[int]struct{})
	for _, r := range t.Rows {
		seen[r.Outer] = struct{}{}
	}

	return len(seen)
}
