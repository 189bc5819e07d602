// ABOUTME: In-memory catalog used by tests across packages
// ABOUTME: Serves fixed playlists, features, analysis and recommendations and records calls

// Package catalogtest provides an in-memory catalog.Catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"playlist-simmer/catalog"
)

// Fake is an in-memory catalog. Zero value is usable; populate the maps directly.
type Fake struct {
	mu sync.Mutex

	Metadata map[string]catalog.PlaylistMetadata
	// Playlists maps playlist id to its entries.
	Playlists map[string][]catalog.TrackRef
	Features  map[string]*catalog.AudioFeatures
	Analysis  map[string]*catalog.AudioAnalysis
	// Recommendations are returned, in order, for any request (truncated to Limit).
	Recommendations []catalog.TrackRef

	// PageSize splits playlists into pages; 0 means one page.
	PageSize int
	// Unavailable maps playlist id to the unavailable item count reported with its first page.
	Unavailable map[string]int

	// Err, when set, is returned from every call.
	Err error

	AnalysisCalls       int
	FeatureCalls        int
	RecommendationCalls []catalog.RecommendationRequest
	Replaced            map[string][]string
}

var _ catalog.Catalog = (*Fake)(nil)

// GetPlaylistMetadata returns stored metadata or a minimal record.
func (f *Fake) GetPlaylistMetadata(_ context.Context, playlistID string) (catalog.PlaylistMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return catalog.PlaylistMetadata{}, f.Err
	}

	if md, ok := f.Metadata[playlistID]; ok {
		return md, nil
	}

	return catalog.PlaylistMetadata{ID: playlistID, Name: playlistID}, nil
}

// GetTrackPage pages through the stored playlist using numeric cursors.
func (f *Fake) GetTrackPage(_ context.Context, playlistID, cursor string) (catalog.TrackPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return catalog.TrackPage{}, f.Err
	}

	items := f.Playlists[playlistID]

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return catalog.TrackPage{}, fmt.Errorf("catalogtest: bad cursor %q", cursor)
		}
		offset = n
	}

	size := f.PageSize
	if size <= 0 {
		size = len(items)
	}

	end := min(offset+size, len(items))
	page := catalog.TrackPage{Items: append([]catalog.TrackRef(nil), items[offset:end]...)}
	if offset == 0 {
		page.Unavailable = f.Unavailable[playlistID]
	}
	if end < len(items) {
		page.Next = strconv.Itoa(end)
	}

	return page, nil
}

// GetAudioFeatures returns features by id, nil for unknown ids.
func (f *Fake) GetAudioFeatures(_ context.Context, ids []string) ([]*catalog.AudioFeatures, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FeatureCalls++

	if f.Err != nil {
		return nil, f.Err
	}

	if len(ids) > catalog.MaxFeatureBatch {
		return nil, fmt.Errorf("catalogtest: batch of %d exceeds %d", len(ids), catalog.MaxFeatureBatch)
	}

	out := make([]*catalog.AudioFeatures, len(ids))
	for i, id := range ids {
		if feat, ok := f.Features[id]; ok {
			c := *feat
			out[i] = &c
		}
	}

	return out, nil
}

// GetAudioAnalysis returns stored analysis or an empty one.
func (f *Fake) GetAudioAnalysis(_ context.Context, trackID string) (*catalog.AudioAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AnalysisCalls++

	if f.Err != nil {
		return nil, f.Err
	}

	if a, ok := f.Analysis[trackID]; ok {
		return a, nil
	}

	return &catalog.AudioAnalysis{}, nil
}

// GetRecommendations returns the configured recommendations.
func (f *Fake) GetRecommendations(_ context.Context, req catalog.RecommendationRequest) ([]catalog.TrackRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RecommendationCalls = append(f.RecommendationCalls, req)

	if f.Err != nil {
		return nil, f.Err
	}

	recs := f.Recommendations
	if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	return append([]catalog.TrackRef(nil), recs...), nil
}

// ReplacePlaylistTracks records the new order.
func (f *Fake) ReplacePlaylistTracks(_ context.Context, playlistID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}

	if f.Replaced == nil {
		f.Replaced = make(map[string][]string)
	}
	f.Replaced[playlistID] = append([]string(nil), ids...)

	return nil
}

// AddTrack registers a playlist entry with its features and analysis.
func (f *Fake) AddTrack(playlistID string, ref catalog.TrackRef, feat catalog.AudioFeatures, analysis *catalog.AudioAnalysis) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Playlists == nil {
		f.Playlists = make(map[string][]catalog.TrackRef)
	}
	if f.Features == nil {
		f.Features = make(map[string]*catalog.AudioFeatures)
	}
	if f.Analysis == nil {
		f.Analysis = make(map[string]*catalog.AudioAnalysis)
	}

	feat.ID = ref.ID
	f.Playlists[playlistID] = append(f.Playlists[playlistID], ref)
	f.Features[ref.ID] = &feat
	if analysis != nil {
		f.Analysis[ref.ID] = analysis
	}
}

// AddCandidate registers a recommendation with its features.
func (f *Fake) AddCandidate(ref catalog.TrackRef, feat catalog.AudioFeatures) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Features == nil {
		f.Features = make(map[string]*catalog.AudioFeatures)
	}

	feat.ID = ref.ID
	f.Features[ref.ID] = &feat
	f.Recommendations = append(f.Recommendations, ref)
}

// Ref builds a TrackRef with a single artist.
func Ref(id, name, artist string) catalog.TrackRef {
	ref := catalog.TrackRef{ID: id, Name: name, URI: "spotify:track:" + id}
	if artist != "" {
		ref.Artists = []catalog.Artist{{Name: artist}}
	}

	return ref
}

// Analysis builds an analysis with n evenly spaced, fully confident events in every series.
func Analysis(n int, tempo float64) *catalog.AudioAnalysis {
	a := &catalog.AudioAnalysis{Track: catalog.TrackSummary{Tempo: tempo}}
	for i := range n {
		start := float64(i) * 2
		ev := catalog.TimeInterval{Start: start, Duration: 2, Confidence: 1}
		a.Bars = append(a.Bars, ev)
		a.Beats = append(a.Beats, ev)
		a.Tatums = append(a.Tatums, ev)
		a.Sections = append(a.Sections, catalog.Section{
			Start:         start,
			Duration:      2,
			Confidence:    1,
			Loudness:      -8 + float64(i),
			Tempo:         tempo,
			Key:           i % 12,
			Mode:          i % 2,
			TimeSignature: 4,
		})
	}

	return a
}
