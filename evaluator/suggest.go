// ABOUTME: Suggestion engine shared by every evaluator: finds weak links and inserts bridge tracks
// ABOUTME: Candidates come from the catalog's recommendations; the bridge is the first stop of a detour

package evaluator

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playlist-simmer/catalog"
	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
	"playlist-simmer/tour"
)

// TargetFeatures are the scalar features the recommendation request targets and
// the detour graph measures.
var TargetFeatures = []string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"liveness",
	"loudness",
	"speechiness",
	"valence",
}

// SuggestOptions tunes the suggestion engine.
type SuggestOptions struct {
	// Divisor bounds suggestions to len(table)/Divisor
	Divisor int
	// Candidates is the recommendation limit per weak link
	Candidates int
	// ConfidenceThreshold is passed to candidate track construction
	ConfidenceThreshold float64
}

// DefaultSuggestOptions returns the defaults: up to a quarter of the playlist,
// three candidates per weak link.
func DefaultSuggestOptions() SuggestOptions {
	return SuggestOptions{
		Divisor:             4,
		Candidates:          3,
		ConfidenceThreshold: playlist.DefaultConfidenceThreshold,
	}
}

// Suggestion is a track inserted between two neighbours.
type Suggestion struct {
	After  string // id of the preceding track
	Before string // id of the following track
	Track  *playlist.Track
	// Index is the candidate's 1-based position among the usable recommendations:
	// those with an id, not already in the table and with a feature record
	Index int
}

// Suggester implements the default Evaluator.Suggest.
type Suggester struct {
	opts SuggestOptions
}

type weakLink struct {
	pos   int
	score float64
}

// Suggest finds the weakest adjacent pairs and inserts one recommended track
// between each. The inserted row inherits its predecessor's outer and inner
// keys and takes the candidate index as its suggest key, so it sorts right
// after the predecessor. Calls to the catalog are made one at a time and any
// failure is returned along with the suggestions already inserted.
func (s Suggester) Suggest(ctx context.Context, t *playlist.Table, rec catalog.Recommender) ([]Suggestion, error) {
	var inserted []Suggestion

	err := withTable(ctx, t, "evaluator.Suggest", func(ctx context.Context, span trace.Span) error {
		divisor := max(s.opts.Divisor, 1)
		limit := t.Len() / divisor
		span.SetAttributes(attribute.Int("suggest.max", limit))
		if limit == 0 {
			return nil
		}

		// Pairs are fixed before any insertion
		type pair struct{ first, second *playlist.Row }
		var pairs []pair
		for _, link := range weakLinks(t, limit) {
			pairs = append(pairs, pair{t.Rows[link.pos], t.Rows[link.pos+1]})
		}

		present := make(map[string]bool, t.Len())
		for _, id := range t.IDs() {
			present[id] = true
		}

		for _, p := range pairs {
			sug, err := s.bridge(ctx, t, rec, p.first, p.second, present)
			if err != nil {
				t.SortByKeys()
				return err
			}
			if sug == nil {
				continue
			}
			present[sug.Track.ID] = true
			inserted = append(inserted, *sug)
		}

		t.SortByKeys()
		span.SetAttributes(attribute.Int("suggest.inserted", len(inserted)))

		return nil
	})

	return inserted, err
}

// bridge asks for candidates between first and second and inserts the one on the
// shortest detour. It returns nil when the catalog offers no usable candidate.
func (s Suggester) bridge(ctx context.Context, t *playlist.Table, rec catalog.Recommender, first, second *playlist.Row, present map[string]bool) (*Suggestion, error) {
	a := targetValues(t, first)
	b := targetValues(t, second)

	targets := make(map[string]float64, len(TargetFeatures))
	for i, name := range TargetFeatures {
		targets[name] = (a[i] + b[i]) / 2
	}

	refs, err := rec.GetRecommendations(ctx, catalog.RecommendationRequest{
		SeedTracks: []string{first.Track.ID, second.Track.ID},
		Targets:    targets,
		Limit:      s.opts.Candidates,
	})
	if err != nil {
		return nil, fmt.Errorf("get recommendations for %s -> %s: %w", first.Track.ID, second.Track.ID, err)
	}

	refs = slices.DeleteFunc(refs, func(r catalog.TrackRef) bool {
		return r.ID == "" || present[r.ID]
	})
	if len(refs) == 0 {
		log.Printf("WARN suggest: no candidates between %s and %s", first.Track.ID, second.Track.ID)
		return nil, nil
	}

	candidates, err := s.candidates(ctx, rec, refs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Printf("WARN suggest: no candidate features between %s and %s", first.Track.ID, second.Track.ID)
		return nil, nil
	}

	// Node 0 is first, 1..n the candidates, n+1 second
	points := make([][]float64, 0, len(candidates)+2)
	points = append(points, a)
	for _, c := range candidates {
		points = append(points, playlist.ScalarsByName(c.Features, TargetFeatures))
	}
	points = append(points, b)

	path, _ := tour.Detour(tour.DistanceMatrixRows(points, false), 0, len(points)-1)
	if len(path) < 3 {
		return nil, nil
	}
	index := path[1]
	chosen := candidates[index-1]

	t.Insert(chosen, playlist.Extract(chosen, t.Counts), first.Outer, first.Inner, index)

	return &Suggestion{After: first.Track.ID, Before: second.Track.ID, Track: chosen, Index: index}, nil
}

// candidates featurizes recommendations without analysis. Tracks with no feature record are dropped.
func (s Suggester) candidates(ctx context.Context, rec catalog.Recommender, refs []catalog.TrackRef) ([]*playlist.Track, error) {
	var tracks []*playlist.Track

	for batch := range slices.Chunk(refs, catalog.MaxFeatureBatch) {
		ids := make([]string, len(batch))
		for i, r := range batch {
			ids[i] = r.ID
		}

		feats, err := rec.GetAudioFeatures(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get candidate features: %w", err)
		}
		if len(feats) != len(ids) {
			return nil, fmt.Errorf("get candidate features: got %d records for %d ids", len(feats), len(ids))
		}

		for i, f := range feats {
			if f == nil {
				continue
			}
			tracks = append(tracks, playlist.NewTrack(batch[i], *f, nil, s.opts.ConfidenceThreshold))
		}
	}

	return tracks, nil
}

// weakLinks scores every adjacent pair by the fraction of differing feature and
// artist values and returns the limit highest, earliest first on ties.
func weakLinks(t *playlist.Table, limit int) []weakLink {
	if t.Len() < 2 {
		return nil
	}

	artists := preprocess.EncodeArtists(t.Artists())

	links := make([]weakLink, t.Len()-1)
	for i := range links {
		a, b := t.Rows[i], t.Rows[i+1]

		differing := 0
		for j := range a.Values {
			if a.Values[j] != b.Values[j] {
				differing++
			}
		}
		if artists[i] != artists[i+1] {
			differing++
		}

		links[i] = weakLink{pos: i, score: float64(differing) / float64(len(a.Values)+1)}
	}

	slices.SortStableFunc(links, func(x, y weakLink) int {
		return cmp.Compare(y.score, x.score)
	})

	return links[:min(limit, len(links))]
}

// targetValues reads the target features of a row from the table.
func targetValues(t *playlist.Table, r *playlist.Row) []float64 {
	out := make([]float64, len(TargetFeatures))
	for i, name := range TargetFeatures {
		if idx := t.ColumnIndex(name); idx >= 0 {
			out[i] = r.Values[idx]
		}
	}

	return out
}
