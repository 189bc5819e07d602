// ABOUTME: Spotify Web API endpoints for playlists, audio features, analysis and recommendations
// ABOUTME: Maps wire payloads onto catalog records and chunks playlist replacement into batches of 100

package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"playlist-simmer/catalog"
)

// maxPlaylistWrite is the largest number of uris one playlist write accepts.
const maxPlaylistWrite = 100

type spotifyTrack struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	URI        string           `json:"uri"`
	Artists    []catalog.Artist `json:"artists"`
	DurationMs int              `json:"duration_ms"`
	IsLocal    bool             `json:"is_local"`
}

func (t spotifyTrack) ref() catalog.TrackRef {
	return catalog.TrackRef{
		ID:         t.ID,
		Name:       t.Name,
		URI:        t.URI,
		Artists:    t.Artists,
		DurationMs: t.DurationMs,
		IsLocal:    t.IsLocal,
	}
}

type spotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapshotID  string `json:"snapshot_id"`
	Owner       struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type playlistTrackPage struct {
	Items []struct {
		Track *spotifyTrack `json:"track"`
	} `json:"items"`
	Next string `json:"next"`
}

// GetPlaylistMetadata retrieves a playlist without its tracks.
func (c *Client) GetPlaylistMetadata(ctx context.Context, playlistID string) (catalog.PlaylistMetadata, error) {
	var pl spotifyPlaylist
	if err := c.get(ctx, c.baseURL+"/playlists/"+url.PathEscape(playlistID), &pl); err != nil {
		return catalog.PlaylistMetadata{}, err
	}

	return catalog.PlaylistMetadata{
		ID:          pl.ID,
		Name:        pl.Name,
		Description: pl.Description,
		Owner:       pl.Owner.DisplayName,
		SnapshotID:  pl.SnapshotID,
		TotalTracks: pl.Tracks.Total,
	}, nil
}

// GetTrackPage fetches one page of playlist items. The cursor is the absolute
// "next" URL returned with the previous page.
func (c *Client) GetTrackPage(ctx context.Context, playlistID, cursor string) (catalog.TrackPage, error) {
	pageURL := cursor
	if pageURL == "" {
		pageURL = c.baseURL + "/playlists/" + url.PathEscape(playlistID) + "/tracks?limit=100"
	} else if !strings.HasPrefix(pageURL, c.baseURL+"/") {
		return catalog.TrackPage{}, fmt.Errorf("spotify adapter: cursor %q is outside %s", cursor, c.baseURL)
	}

	var page playlistTrackPage
	if err := c.get(ctx, pageURL, &page); err != nil {
		return catalog.TrackPage{}, err
	}

	out := catalog.TrackPage{Next: page.Next}
	for _, item := range page.Items {
		// Removed or unavailable items come back with a null track
		if item.Track == nil {
			out.Unavailable++
			continue
		}
		out.Items = append(out.Items, item.Track.ref())
	}

	return out, nil
}

// GetAudioFeatures fetches features for up to catalog.MaxFeatureBatch tracks.
func (c *Client) GetAudioFeatures(ctx context.Context, ids []string) ([]*catalog.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > catalog.MaxFeatureBatch {
		return nil, fmt.Errorf("spotify adapter: %d ids exceeds audio features batch of %d", len(ids), catalog.MaxFeatureBatch)
	}

	q := url.Values{"ids": {strings.Join(ids, ",")}}

	var resp struct {
		AudioFeatures []*catalog.AudioFeatures `json:"audio_features"`
	}
	if err := c.get(ctx, c.baseURL+"/audio-features?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.AudioFeatures) != len(ids) {
		return nil, fmt.Errorf("spotify adapter: audio features returned %d records for %d ids", len(resp.AudioFeatures), len(ids))
	}

	return resp.AudioFeatures, nil
}

// GetAudioAnalysis fetches the full time-indexed analysis of one track.
func (c *Client) GetAudioAnalysis(ctx context.Context, trackID string) (*catalog.AudioAnalysis, error) {
	var analysis catalog.AudioAnalysis
	if err := c.get(ctx, c.baseURL+"/audio-analysis/"+url.PathEscape(trackID), &analysis); err != nil {
		return nil, err
	}

	return &analysis, nil
}

// GetRecommendations requests tracks seeded by req.SeedTracks with target_* parameters.
func (c *Client) GetRecommendations(ctx context.Context, req catalog.RecommendationRequest) ([]catalog.TrackRef, error) {
	q := url.Values{}
	q.Set("seed_tracks", strings.Join(req.SeedTracks, ","))
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	for name, target := range req.Targets {
		q.Set("target_"+name, strconv.FormatFloat(target, 'f', -1, 64))
	}

	var resp struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := c.get(ctx, c.baseURL+"/recommendations?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	refs := make([]catalog.TrackRef, len(resp.Tracks))
	for i, t := range resp.Tracks {
		refs[i] = t.ref()
	}

	return refs, nil
}

// ReplacePlaylistTracks replaces the playlist with ids in order. The first 100
// replace the contents; the rest are appended in chunks of 100.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, ids []string) error {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = "spotify:track:" + id
	}

	endpoint := c.baseURL + "/playlists/" + url.PathEscape(playlistID) + "/tracks"

	method := http.MethodPut
	chunks := slices.Collect(slices.Chunk(uris, maxPlaylistWrite))
	if len(chunks) == 0 {
		// An empty PUT clears the playlist
		chunks = [][]string{{}}
	}

	for _, chunk := range chunks {
		body, err := json.Marshal(map[string][]string{"uris": chunk})
		if err != nil {
			return fmt.Errorf("spotify adapter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("spotify adapter: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		if err := c.do(req, nil); err != nil {
			return err
		}
		method = http.MethodPost
	}

	return nil
}
