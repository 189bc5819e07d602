// ABOUTME: Evaluator contract: reorder a playlist table in place, then optionally suggest bridge tracks
// ABOUTME: Concrete evaluators are selected explicitly by name

// Package evaluator reorders playlist tables for sonic flow and inserts
// recommended tracks between weak links.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"playlist-simmer/catalog"
	"playlist-simmer/cluster"
	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
	"playlist-simmer/tour"
)

var tracer = otel.Tracer("playlist-simmer/evaluator")

// ErrUnknownEvaluator is returned by ByName for names it does not recognize.
var ErrUnknownEvaluator = errors.New("unknown evaluator")

// Evaluator reorders a table and suggests tracks to insert into it. Both calls
// mutate the table they are given and claim it for their duration.
type Evaluator interface {
	Name() string
	Reorder(ctx context.Context, t *playlist.Table) error
	Suggest(ctx context.Context, t *playlist.Table, rec catalog.Recommender) ([]Suggestion, error)
}

// Options tunes every evaluator.
type Options struct {
	// DistanceThreshold is the Ward dendrogram cut for outer clusters
	DistanceThreshold float64
	// MaxComponents caps PCA before clustering
	MaxComponents int
	// TruncateDistances truncates intra-cluster distances to integers
	TruncateDistances bool
	// ChaosOffset keeps inverted distances positive
	ChaosOffset float64

	Tour    tour.Options
	Suggest SuggestOptions

	// Debugf receives progress details when set
	Debugf func(format string, args ...any)
}

func (o Options) debugf(format string, args ...any) {
	if o.Debugf != nil {
		o.Debugf(format, args...)
	}
}

// DefaultChaosOffset is added to inverted distances on top of their magnitude.
const DefaultChaosOffset = 10.0

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		DistanceThreshold: cluster.DefaultThreshold,
		MaxComponents:     preprocess.DefaultMaxComponents,
		ChaosOffset:       DefaultChaosOffset,
		Tour:              tour.DefaultOptions(),
		Suggest:           DefaultSuggestOptions(),
	}
}

// Names lists the selectable evaluators. Feature ordering is selected as "feature:<column>".
var Names = []string{"clustering", "tsp", "chaos"}

// ByName returns the evaluator called name.
func ByName(name string, opts Options) (Evaluator, error) {
	switch name {
	case "clustering":
		return NewClustering(opts), nil
	case "tsp":
		return NewTSP(opts), nil
	case "chaos":
		return NewChaos(opts), nil
	}

	if column, ok := strings.CutPrefix(name, "feature:"); ok && column != "" {
		return NewFeature(column, opts), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvaluator, name)
}

// withTable claims t for fn inside a span named after the evaluator step.
func withTable(ctx context.Context, t *playlist.Table, spanName string, fn func(ctx context.Context, span trace.Span) error) error {
	release, err := t.Acquire()
	if err != nil {
		return err
	}
	defer release()

	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("playlist.id", t.PlaylistID),
		attribute.Int("playlist.tracks", t.Len()),
	))
	defer span.End()

	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// featureRows returns every row's feature values followed by its artist code.
func featureRows(t *playlist.Table) [][]float64 {
	return preprocess.Rows(preprocess.Raw(t.Matrix(), t.Artists()))
}
