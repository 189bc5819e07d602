// ABOUTME: Tests for the suggestion engine and the Simmer entry point
// ABOUTME: Uses the in-memory catalog for recommendations, candidate features and publishing

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlist-simmer/catalog"
	"playlist-simmer/catalog/catalogtest"
	"playlist-simmer/metrics"
	"playlist-simmer/playlist"
)

func energyTable(t *testing.T, n int) *playlist.Table {
	t.Helper()

	tracks := make([]*playlist.Track, n)
	for i := range tracks {
		tracks[i] = testTrack(fmt.Sprintf("t%d", i), fmt.Sprintf("Artist %d", i%3), catalog.AudioFeatures{
			Energy:  float64(i) / float64(n),
			Valence: float64(n-i) / float64(n),
		})
	}

	table, err := playlist.NewTable("p", "Energy", tracks)
	require.NoError(t, err)

	return table
}

func fakeWithCandidates(n int) *catalogtest.Fake {
	fake := &catalogtest.Fake{}
	for i := range n {
		id := fmt.Sprintf("cand%d", i)
		fake.AddCandidate(catalogtest.Ref(id, "Candidate "+id, "Guest"), catalog.AudioFeatures{
			Energy:  0.2 + 0.2*float64(i),
			Valence: 0.5,
		})
	}

	return fake
}

func TestSuggestInsertsBetweenNeighbours(t *testing.T) {
	table := energyTable(t, 8)
	fake := fakeWithCandidates(3)

	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)

	require.Len(t, inserted, 2)
	assert.Equal(t, 10, table.Len())
	assert.Len(t, fake.RecommendationCalls, 2)

	ids := table.IDs()
	for _, s := range inserted {
		pos := slices.Index(ids, s.Track.ID)
		require.Positive(t, pos, "inserted %s missing from %v", s.Track.ID, ids)
		require.Less(t, pos, len(ids)-1)

		assert.Equal(t, s.After, ids[pos-1])
		assert.Equal(t, s.Before, ids[pos+1])
		assert.Equal(t, s.Index, table.Rows[pos].Suggest)
		assert.GreaterOrEqual(t, s.Index, 1)
		assert.LessOrEqual(t, s.Index, 3)
	}

	assert.NotEqual(t, inserted[0].Track.ID, inserted[1].Track.ID)

	for _, req := range fake.RecommendationCalls {
		assert.Len(t, req.SeedTracks, 2)
		assert.Equal(t, 3, req.Limit)
		assert.Len(t, req.Targets, len(TargetFeatures))
		assert.NotContains(t, req.Targets, "tempo")
	}
}

func TestSuggestAfterClustering(t *testing.T) {
	tests := []struct {
		name string
		seed uint64
	}{
		{"seed 3", 3},
		{"seed 7", 7},
		{"seed 19", 19},
		{"seed 42", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := randomTable(t, tt.seed, 24)
			opts := DefaultOptions()
			opts.Suggest.Candidates = 20

			ev := NewClustering(opts)
			require.NoError(t, ev.Reorder(context.Background(), table))

			keys := make(map[string][2]int, table.Len())
			for _, r := range table.Rows {
				keys[r.Track.ID] = [2]int{r.Outer, r.Inner}
			}

			inserted, err := ev.Suggest(context.Background(), table, fakeWithCandidates(12))
			require.NoError(t, err)
			require.NotEmpty(t, inserted)
			assert.Equal(t, 24+len(inserted), table.Len())

			ids := table.IDs()
			for _, s := range inserted {
				pos := slices.Index(ids, s.Track.ID)
				require.Positive(t, pos, "inserted %s missing from %v", s.Track.ID, ids)
				require.Less(t, pos, len(ids)-1)

				assert.Equal(t, s.After, ids[pos-1])
				assert.Equal(t, s.Before, ids[pos+1])

				row := table.Rows[pos]
				assert.Equal(t, keys[s.After], [2]int{row.Outer, row.Inner}, "keys of %s", s.Track.ID)
				assert.Equal(t, s.Index, row.Suggest)
			}
		})
	}
}

func TestSuggestTargetsMidpoint(t *testing.T) {
	tracks := []*playlist.Track{
		testTrack("a", "X", catalog.AudioFeatures{Energy: 0.2, Valence: 0.8}),
		testTrack("b", "Y", catalog.AudioFeatures{Energy: 0.6, Valence: 0.4}),
		testTrack("c", "Y", catalog.AudioFeatures{Energy: 0.6, Valence: 0.4}),
		testTrack("d", "Y", catalog.AudioFeatures{Energy: 0.6, Valence: 0.4}),
	}
	table, err := playlist.NewTable("p", "Mid", tracks)
	require.NoError(t, err)

	fake := fakeWithCandidates(1)
	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	req := fake.RecommendationCalls[0]
	assert.Equal(t, []string{"a", "b"}, req.SeedTracks)
	assert.InDelta(t, 0.4, req.Targets["energy"], 1e-9)
	assert.InDelta(t, 0.6, req.Targets["valence"], 1e-9)
	assert.Equal(t, []string{"a", "cand0", "b", "c", "d"}, table.IDs())
}

func TestSuggestBound(t *testing.T) {
	table := energyTable(t, 3)
	fake := fakeWithCandidates(3)

	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.Empty(t, fake.RecommendationCalls)
	assert.Equal(t, 3, table.Len())
}

func TestSuggestNoCandidates(t *testing.T) {
	table := energyTable(t, 8)
	fake := &catalogtest.Fake{}

	inserted, err := NewClustering(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.Equal(t, 8, table.Len())
}

func TestSuggestSkipsPresentTracks(t *testing.T) {
	table := energyTable(t, 4)
	fake := &catalogtest.Fake{Recommendations: []catalog.TrackRef{
		catalogtest.Ref("t0", "Already here", "Artist 0"),
		catalogtest.Ref("", "No id", ""),
	}}

	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.Zero(t, fake.FeatureCalls)
}

func TestSuggestIndexCountsUsableCandidates(t *testing.T) {
	table := energyTable(t, 4)
	fake := &catalogtest.Fake{Recommendations: []catalog.TrackRef{
		catalogtest.Ref("t0", "Already here", "Artist 0"),
		catalogtest.Ref("ghost", "No features", "Nobody"),
	}}
	fake.AddCandidate(catalogtest.Ref("candA", "Candidate A", "Guest"), catalog.AudioFeatures{Energy: 0.4, Valence: 0.5})
	fake.AddCandidate(catalogtest.Ref("candB", "Candidate B", "Guest"), catalog.AudioFeatures{Energy: 0.6, Valence: 0.5})

	opts := DefaultOptions()
	opts.Suggest.Candidates = 4

	inserted, err := NewTSP(opts).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	usable := []string{"candA", "candB"}
	s := inserted[0]
	require.GreaterOrEqual(t, s.Index, 1)
	require.LessOrEqual(t, s.Index, len(usable))
	assert.Equal(t, usable[s.Index-1], s.Track.ID)
}

func TestSuggestSkipsCandidatesWithoutFeatures(t *testing.T) {
	table := energyTable(t, 4)
	fake := &catalogtest.Fake{Recommendations: []catalog.TrackRef{catalogtest.Ref("ghost", "Ghost", "Nobody")}}

	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.Equal(t, 1, fake.FeatureCalls)
	assert.Equal(t, 4, table.Len())
}

func TestSuggestCatalogError(t *testing.T) {
	table := energyTable(t, 8)
	boom := errors.New("boom")
	fake := fakeWithCandidates(3)
	fake.Err = boom

	inserted, err := NewTSP(DefaultOptions()).Suggest(context.Background(), table, fake)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, inserted)
	assert.Equal(t, 8, table.Len())

	// The table is released even after a failure
	release, err := table.Acquire()
	require.NoError(t, err)
	release()
}

func TestWeakLinks(t *testing.T) {
	tracks := []*playlist.Track{
		testTrack("a", "X", catalog.AudioFeatures{Energy: 0.1}),
		testTrack("b", "X", catalog.AudioFeatures{Energy: 0.5}),
		testTrack("c", "X", catalog.AudioFeatures{Energy: 0.5}),
		testTrack("d", "X", catalog.AudioFeatures{Energy: 0.9}),
	}
	table, err := playlist.NewTable("p", "Links", tracks)
	require.NoError(t, err)

	links := weakLinks(table, 2)
	require.Len(t, links, 2)
	assert.Equal(t, 0, links[0].pos)
	assert.Equal(t, 2, links[1].pos)
	assert.InDelta(t, links[0].score, links[1].score, 1e-12)

	links = weakLinks(table, 10)
	require.Len(t, links, 3)
	assert.Equal(t, 1, links[2].pos)
	assert.Zero(t, links[2].score)
}

func TestWeakLinksCountArtist(t *testing.T) {
	tracks := []*playlist.Track{
		testTrack("a", "X", catalog.AudioFeatures{Energy: 0.5}),
		testTrack("b", "X", catalog.AudioFeatures{Energy: 0.5}),
		testTrack("c", "Y", catalog.AudioFeatures{Energy: 0.5}),
	}
	table, err := playlist.NewTable("p", "Artists", tracks)
	require.NoError(t, err)

	links := weakLinks(table, 1)
	require.Len(t, links, 1)
	assert.Equal(t, 1, links[0].pos)
	assert.Positive(t, links[0].score)
}

func TestSimmer(t *testing.T) {
	table := energyTable(t, 8)
	fake := fakeWithCandidates(3)
	run := metrics.NewRun("tsp")

	res, err := Simmer(context.Background(), table, NewTSP(DefaultOptions()), SimmerOptions{
		Suggest:     true,
		Recommender: fake,
		Publisher:   fake,
		Metrics:     run,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Inserted, 2)
	assert.Len(t, res.IDs, 10)
	assert.Equal(t, res.IDs, fake.Replaced["p"])
	assert.Equal(t, table.IDs(), res.IDs)
	assert.Zero(t, res.Clusters)
}

func TestSimmerClusteringWithoutSuggestions(t *testing.T) {
	table := energyTable(t, 8)
	fake := fakeWithCandidates(3)

	res, err := Simmer(context.Background(), table, NewClustering(DefaultOptions()), SimmerOptions{Recommender: fake})
	require.NoError(t, err)

	assert.Empty(t, res.Inserted)
	assert.Empty(t, fake.RecommendationCalls)
	assert.Nil(t, fake.Replaced)
	assert.Len(t, res.IDs, 8)
	assert.Equal(t, distinctOuter(table), res.Clusters)
	assert.GreaterOrEqual(t, res.Clusters, 1)
}

func TestSimmerPublishError(t *testing.T) {
	table := energyTable(t, 4)
	boom := errors.New("publish failed")
	fake := &catalogtest.Fake{Err: boom}

	res, err := Simmer(context.Background(), table, NewTSP(DefaultOptions()), SimmerOptions{Publisher: fake})
	require.ErrorIs(t, err, boom)
	assert.Len(t, res.IDs, 4)
}
