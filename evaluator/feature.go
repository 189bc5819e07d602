// ABOUTME: Feature evaluator: orders tracks ascending by one feature column
// ABOUTME: Selected as "feature:<column>", e.g. feature:tempo or feature:energy

package evaluator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playlist-simmer/playlist"
)

// Feature sorts the playlist by a single feature column.
type Feature struct {
	Suggester
	Column string
}

// NewFeature returns an evaluator sorting by column.
func NewFeature(column string, opts Options) *Feature {
	return &Feature{Suggester: Suggester{opts: opts.Suggest}, Column: column}
}

// Name implements Evaluator.
func (e *Feature) Name() string { return "feature:" + e.Column }

// Reorder implements Evaluator.
func (e *Feature) Reorder(ctx context.Context, t *playlist.Table) error {
	return withTable(ctx, t, "evaluator.Feature.Reorder", func(_ context.Context, span trace.Span) error {
		span.SetAttributes(attribute.String("column", e.Column))
		return t.SortByColumn(e.Column)
	})
}
