// ABOUTME: Offline catalog backed by M3U8 playlists, audio file tags and JSON sidecar files
// ABOUTME: Recommends tracks from a library playlist ranked by distance to the requested feature targets

// Package local implements catalog.Catalog over files on disk.
// A playlist id is the path of an .m3u8 file and a track id is the resolved
// path of an audio file. Features and analysis are read from
// "<audio>.features.json" and "<audio>.analysis.json" next to each file, in the
// same JSON shapes the Spotify Web API returns.
package local

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"playlist-simmer/catalog"
)

const (
	featuresSuffix = ".features.json"
	analysisSuffix = ".analysis.json"
)

// Catalog reads playlists and track data from the filesystem
type Catalog struct {
	// LibraryPath is an optional .m3u8 whose entries are recommendation candidates
	LibraryPath string
}

var _ catalog.Catalog = (*Catalog)(nil)

// New creates a local catalog. libraryPath may be empty, which disables recommendations.
func New(libraryPath string) *Catalog {
	return &Catalog{LibraryPath: libraryPath}
}

// GetPlaylistMetadata names the playlist after its file
func (c *Catalog) GetPlaylistMetadata(_ context.Context, playlistID string) (catalog.PlaylistMetadata, error) {
	entries, err := ReadPlaylist(playlistID)
	if err != nil {
		return catalog.PlaylistMetadata{}, notFound(playlistID, err)
	}

	return catalog.PlaylistMetadata{
		ID:          playlistID,
		Name:        strings.TrimSuffix(filepath.Base(playlistID), filepath.Ext(playlistID)),
		TotalTracks: len(entries),
	}, nil
}

// GetTrackPage returns the whole playlist as one page
func (c *Catalog) GetTrackPage(_ context.Context, playlistID, cursor string) (catalog.TrackPage, error) {
	if cursor != "" {
		return catalog.TrackPage{}, fmt.Errorf("local: unexpected cursor %q", cursor)
	}

	entries, err := ResolveEntries(playlistID)
	if err != nil {
		return catalog.TrackPage{}, notFound(playlistID, err)
	}

	page := catalog.TrackPage{Items: make([]catalog.TrackRef, len(entries))}
	for i, path := range entries {
		page.Items[i] = trackRef(path)
	}

	return page, nil
}

// trackRef builds a reference from file tags. Untagged or missing files keep
// their file name as title and have no artist.
func trackRef(path string) catalog.TrackRef {
	ref := catalog.TrackRef{ID: path, URI: path, Name: filepath.Base(path)}

	tags, err := ReadTags(path)
	if err != nil {
		return ref
	}

	ref.Name = tags.Title
	if tags.Artist != "" {
		ref.Artists = []catalog.Artist{{Name: tags.Artist}}
	}

	return ref
}

// GetAudioFeatures reads each track's features sidecar, falling back to tagged
// BPM and key. Tracks with neither get a nil entry.
func (c *Catalog) GetAudioFeatures(_ context.Context, ids []string) ([]*catalog.AudioFeatures, error) {
	out := make([]*catalog.AudioFeatures, len(ids))

	for i, id := range ids {
		var feat catalog.AudioFeatures
		found, err := readSidecar(id+featuresSuffix, &feat)
		if err != nil {
			return nil, err
		}

		if found {
			feat.ID = id
			out[i] = &feat
			continue
		}

		if tags, err := ReadTags(id); err == nil {
			out[i] = tags.Features(id)
		}
	}

	return out, nil
}

// GetAudioAnalysis reads the analysis sidecar; a missing sidecar yields an empty analysis
func (c *Catalog) GetAudioAnalysis(_ context.Context, trackID string) (*catalog.AudioAnalysis, error) {
	var analysis catalog.AudioAnalysis
	if _, err := readSidecar(trackID+analysisSuffix, &analysis); err != nil {
		return nil, err
	}

	return &analysis, nil
}

// GetRecommendations ranks library tracks that are not seeds by Euclidean distance
// of their features to the targets. Ties keep library order.
func (c *Catalog) GetRecommendations(ctx context.Context, req catalog.RecommendationRequest) ([]catalog.TrackRef, error) {
	if c.LibraryPath == "" || req.Limit <= 0 {
		return nil, nil
	}

	entries, err := ResolveEntries(c.LibraryPath)
	if err != nil {
		return nil, notFound(c.LibraryPath, err)
	}

	entries = slices.DeleteFunc(entries, func(e string) bool {
		return slices.Contains(req.SeedTracks, e)
	})

	features, err := c.GetAudioFeatures(ctx, entries)
	if err != nil {
		return nil, err
	}

	type scored struct {
		path string
		dist float64
	}

	var candidates []scored
	for i, feat := range features {
		if feat == nil {
			continue
		}
		candidates = append(candidates, scored{path: entries[i], dist: targetDistance(feat, req.Targets)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(a.dist, b.dist)
	})

	refs := make([]catalog.TrackRef, 0, min(req.Limit, len(candidates)))
	for _, cand := range candidates[:min(req.Limit, len(candidates))] {
		refs = append(refs, trackRef(cand.path))
	}

	return refs, nil
}

// targetDistance is the Euclidean distance between a track's features and the targets
func targetDistance(feat *catalog.AudioFeatures, targets map[string]float64) float64 {
	values := map[string]float64{
		"acousticness":     feat.Acousticness,
		"danceability":     feat.Danceability,
		"energy":           feat.Energy,
		"instrumentalness": feat.Instrumentalness,
		"liveness":         feat.Liveness,
		"loudness":         feat.Loudness,
		"speechiness":      feat.Speechiness,
		"tempo":            feat.Tempo,
		"valence":          feat.Valence,
	}

	var sum float64
	for name, target := range targets {
		if v, ok := values[name]; ok {
			sum += (v - target) * (v - target)
		}
	}

	return math.Sqrt(sum)
}

// ReplacePlaylistTracks rewrites the playlist file in the given order, keeping a .bak backup
func (c *Catalog) ReplacePlaylistTracks(_ context.Context, playlistID string, ids []string) error {
	return WritePlaylist(playlistID, relativeTo(playlistID, ids))
}

// readSidecar decodes a JSON file into v. A missing file is not an error.
func readSidecar(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("local: read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("local: decode %s: %w", path, err)
	}

	return true, nil
}

func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, path)
	}

	return err
}
