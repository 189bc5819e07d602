// ABOUTME: Contract for the music catalog that supplies playlists, features, analysis and recommendations
// ABOUTME: Defines the record types shared by the Spotify, local and cached catalog implementations

// Package catalog describes the external music catalog the simmer engine consumes.
// Implementations live in the spotify, local and cache subpackages.
package catalog

import (
	"context"
	"errors"
)

// MaxFeatureBatch is the largest number of ids accepted by one GetAudioFeatures call.
const MaxFeatureBatch = 100

// ErrNotFound is returned when a playlist or track does not exist in the catalog.
var ErrNotFound = errors.New("catalog: not found")

// TrackSource is the read side used while building a playlist table.
type TrackSource interface {
	GetPlaylistMetadata(ctx context.Context, playlistID string) (PlaylistMetadata, error)
	// GetTrackPage returns one page of playlist entries. An empty cursor requests the
	// first page; an empty TrackPage.Next means there are no further pages.
	GetTrackPage(ctx context.Context, playlistID, cursor string) (TrackPage, error)
	// GetAudioFeatures returns one entry per id, in order. A nil entry means the
	// catalog has no features for that track.
	GetAudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error)
	GetAudioAnalysis(ctx context.Context, trackID string) (*AudioAnalysis, error)
}

// Recommender supplies bridge candidates for the suggestion engine.
type Recommender interface {
	GetRecommendations(ctx context.Context, req RecommendationRequest) ([]TrackRef, error)
	GetAudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error)
}

// Publisher writes a new track order back to the catalog.
type Publisher interface {
	ReplacePlaylistTracks(ctx context.Context, playlistID string, ids []string) error
}

// Catalog is the full collaborator contract.
type Catalog interface {
	TrackSource
	Recommender
	Publisher
}

// Artist is a credited artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrackRef is a playlist entry or recommendation as returned by the catalog.
type TrackRef struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri,omitempty"`
	Artists    []Artist `json:"artists"`
	DurationMs int      `json:"duration_ms"`
	IsLocal    bool     `json:"is_local,omitempty"`
}

// PrimaryArtist returns the first credited artist's name and whether there was one.
func (r TrackRef) PrimaryArtist() (string, bool) {
	if len(r.Artists) == 0 || r.Artists[0].Name == "" {
		return "", false
	}

	return r.Artists[0].Name, true
}

// PlaylistMetadata describes a playlist without its tracks.
type PlaylistMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	SnapshotID  string `json:"snapshot_id,omitempty"`
	TotalTracks int    `json:"total_tracks,omitempty"`
}

// TrackPage is one page of playlist entries.
type TrackPage struct {
	Items []TrackRef
	Next  string
	// Unavailable counts items on this page the catalog no longer serves
	Unavailable int
}

// AudioFeatures holds the scalar audio features of one track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	DurationMs       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

// TimeInterval is a single bar, beat or tatum event.
type TimeInterval struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// Section is a large-scale structural section of a track.
type Section struct {
	Start                   float64 `json:"start"`
	Duration                float64 `json:"duration"`
	Confidence              float64 `json:"confidence"`
	Loudness                float64 `json:"loudness"`
	Tempo                   float64 `json:"tempo"`
	TempoConfidence         float64 `json:"tempo_confidence"`
	Key                     int     `json:"key"`
	KeyConfidence           float64 `json:"key_confidence"`
	Mode                    int     `json:"mode"`
	ModeConfidence          float64 `json:"mode_confidence"`
	TimeSignature           int     `json:"time_signature"`
	TimeSignatureConfidence float64 `json:"time_signature_confidence"`
}

// Segment is a short sound event with timbre and pitch content.
type Segment struct {
	Start           float64   `json:"start"`
	Duration        float64   `json:"duration"`
	Confidence      float64   `json:"confidence"`
	LoudnessStart   float64   `json:"loudness_start"`
	LoudnessMaxTime float64   `json:"loudness_max_time"`
	LoudnessMax     float64   `json:"loudness_max"`
	LoudnessEnd     float64   `json:"loudness_end"`
	Pitches         []float64 `json:"pitches"`
	Timbre          []float64 `json:"timbre"`
}

// TrackSummary is the track-level block of an audio analysis.
type TrackSummary struct {
	Duration       float64 `json:"duration"`
	Loudness       float64 `json:"loudness"`
	Tempo          float64 `json:"tempo"`
	Key            int     `json:"key"`
	Mode           int     `json:"mode"`
	TimeSignature  int     `json:"time_signature"`
	EndOfFadeIn    float64 `json:"end_of_fade_in"`
	StartOfFadeOut float64 `json:"start_of_fade_out"`
}

// AudioAnalysis is the time-indexed analysis of one track.
type AudioAnalysis struct {
	Track    TrackSummary   `json:"track"`
	Bars     []TimeInterval `json:"bars"`
	Beats    []TimeInterval `json:"beats"`
	Sections []Section      `json:"sections"`
	Segments []Segment      `json:"segments"`
	Tatums   []TimeInterval `json:"tatums"`
}

// RecommendationRequest asks for tracks similar to the seeds, steered toward target feature values.
type RecommendationRequest struct {
	SeedTracks []string
	// Targets maps feature names (e.g. "energy") to target values.
	Targets map[string]float64
	Limit   int
}
