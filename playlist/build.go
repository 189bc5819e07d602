// ABOUTME: Builds a playlist table from a catalog: pages references, batches features, fetches analysis
// ABOUTME: Track construction fans out over the worker pool; results are merged sequentially afterwards

package playlist

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"playlist-simmer/catalog"
	"playlist-simmer/pool"
)

var tracer = otel.Tracer("playlist-simmer/playlist")

// BuildOptions controls table construction.
type BuildOptions struct {
	// ConfidenceThreshold drops analysis events at or below it.
	ConfidenceThreshold float64
	// FetchAnalysis requests per-track analysis. Without it only scalar features are used.
	FetchAnalysis bool
	// Sequential constructs tracks one at a time instead of on the worker pool.
	Sequential bool
	// Workers sizes the pool; 0 uses one worker per CPU.
	Workers int
	// Progress, when set, is called after each track is constructed. Calls are serialized.
	Progress func(done, total int)
	// Debugf, when set, receives debug output.
	Debugf func(format string, args ...any)
}

// DefaultBuildOptions returns options that fetch analysis on the worker pool.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		FetchAnalysis:       true,
	}
}

func (o BuildOptions) debugf(format string, args ...any) {
	if o.Debugf != nil {
		o.Debugf(format, args...)
	}
}

// Build fetches a playlist from the catalog and assembles its table.
// References without a catalog id or without a feature record are skipped.
// Returns ErrEmptyPlaylist when nothing usable remains. Catalog errors are returned wrapped.
func Build(ctx context.Context, src catalog.TrackSource, playlistID string, opts BuildOptions) (*Table, error) {
	ctx, span := tracer.Start(ctx, "playlist.Build")
	defer span.End()
	span.SetAttributes(attribute.String("playlist.id", playlistID))

	t, err := build(ctx, src, playlistID, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("playlist.tracks", t.Len()), attribute.Int("playlist.skipped", len(t.Skipped)))

	return t, nil
}

func build(ctx context.Context, src catalog.TrackSource, playlistID string, opts BuildOptions) (*Table, error) {
	md, err := src.GetPlaylistMetadata(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("get playlist metadata: %w", err)
	}

	refs, unavailable, err := fetchRefs(ctx, src, playlistID)
	if err != nil {
		return nil, err
	}
	opts.debugf("Fetched %d references for playlist %s", len(refs), playlistID)

	var skipped []string
	if unavailable > 0 {
		log.Printf("WARN playlist: skipping %d items the catalog no longer serves", unavailable)
		for range unavailable {
			skipped = append(skipped, UnavailableItem)
		}
	}

	usable := refs[:0:0]
	for _, ref := range refs {
		if ref.ID == "" {
			log.Printf("WARN playlist: skipping %q: no catalog id", ref.Name)
			skipped = append(skipped, ref.Name)
			continue
		}
		usable = append(usable, ref)
	}

	features, err := fetchFeatures(ctx, src, usable)
	if err != nil {
		return nil, err
	}

	var pending []pendingTrack
	for i, ref := range usable {
		if features[i] == nil {
			log.Printf("WARN playlist: skipping %s (%q): no audio features", ref.ID, ref.Name)
			skipped = append(skipped, ref.ID)
			continue
		}
		pending = append(pending, pendingTrack{ref: ref, features: *features[i]})
	}

	if len(pending) == 0 {
		return nil, ErrEmptyPlaylist
	}

	tracks, err := constructTracks(ctx, src, pending, opts)
	if err != nil {
		return nil, err
	}

	t, err := NewTable(playlistID, md.Name, tracks)
	if err != nil {
		return nil, err
	}
	t.Skipped = skipped
	opts.debugf("Built table %q: %d rows, counts %+v, %d columns", t.Name, t.Len(), t.Counts, len(t.Columns))

	return t, nil
}

type pendingTrack struct {
	ref      catalog.TrackRef
	features catalog.AudioFeatures
}

// fetchRefs pages through the playlist until no cursor is returned.
func fetchRefs(ctx context.Context, src catalog.TrackSource, playlistID string) ([]catalog.TrackRef, int, error) {
	var refs []catalog.TrackRef
	unavailable := 0

	cursor := ""
	for {
		page, err := src.GetTrackPage(ctx, playlistID, cursor)
		if err != nil {
			return nil, 0, fmt.Errorf("get track page: %w", err)
		}
		refs = append(refs, page.Items...)
		unavailable += page.Unavailable

		if page.Next == "" {
			return refs, unavailable, nil
		}
		cursor = page.Next
	}
}

// fetchFeatures requests features in batches of at most catalog.MaxFeatureBatch ids.
func fetchFeatures(ctx context.Context, src catalog.TrackSource, refs []catalog.TrackRef) ([]*catalog.AudioFeatures, error) {
	out := make([]*catalog.AudioFeatures, 0, len(refs))

	for start := 0; start < len(refs); start += catalog.MaxFeatureBatch {
		end := min(start+catalog.MaxFeatureBatch, len(refs))

		ids := make([]string, 0, end-start)
		for _, ref := range refs[start:end] {
			ids = append(ids, ref.ID)
		}

		batch, err := src.GetAudioFeatures(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get audio features: %w", err)
		}
		if len(batch) != len(ids) {
			return nil, fmt.Errorf("get audio features: got %d records for %d ids", len(batch), len(ids))
		}
		out = append(out, batch...)
	}

	return out, nil
}

// constructTracks builds one Track per pending entry. Each task writes only its own
// slot; the slice is read after all tasks have finished.
func constructTracks(ctx context.Context, src catalog.TrackSource, pending []pendingTrack, opts BuildOptions) ([]*Track, error) {
	tracks := make([]*Track, len(pending))

	var mu sync.Mutex
	done := 0
	report := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(done, len(pending))
	}

	construct := func(ctx context.Context, i int) error {
		p := pending[i]

		var analysis *catalog.AudioAnalysis
		if opts.FetchAnalysis {
			a, err := src.GetAudioAnalysis(ctx, p.ref.ID)
			if err != nil {
				return fmt.Errorf("get audio analysis for %s: %w", p.ref.ID, err)
			}
			analysis = a
		}

		tracks[i] = NewTrack(p.ref, p.features, analysis, opts.ConfidenceThreshold)
		report()

		return nil
	}

	if opts.Sequential || !opts.FetchAnalysis {
		for i := range pending {
			if err := construct(ctx, i); err != nil {
				return nil, err
			}
		}
		return tracks, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp := pool.NewWorkerPool(opts.Workers, len(pending))
	defer wp.Close()
	opts.debugf("Constructing %d tracks on %d workers", len(pending), wp.Workers())

	// The first failure cancels the rest; errors caused by that cancellation are not reported.
	var (
		failOnce sync.Once
		firstErr error
	)

	for i := range pending {
		wp.Submit(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := construct(ctx, i); err != nil {
				failOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return err
			}
			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return tracks, nil
}
