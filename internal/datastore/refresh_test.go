package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/store"
)

func TestRefreshSpeciesMetadata_FetchesOnlyMissingIDs(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.WriteDetections([]domain.Detection{
		det(10, "A"), det(20, "B"), det(30, "B"),
	}))
	require.NoError(t, backend.WriteSpecies([]domain.Species{
		{ID: "A", CommonName: "cached A"},
	}))

	fetcher := newFakeFetcher()
	s, _ := newTestStore(t, backend, fetcher, Options{})

	fetched, err := s.RefreshSpeciesMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)

	// Only the uncached id was requested, never the cached one.
	require.Len(t, fetcher.speciesIDs, 1)
	assert.Equal(t, []string{"B"}, fetcher.speciesIDs[0])

	species, err := backend.ReadSpecies()
	require.NoError(t, err)
	require.Len(t, species, 2)
	assert.Equal(t, "A", species[0].ID)
	assert.Equal(t, "cached A", species[0].CommonName, "cached metadata is kept, not refetched")
	assert.Equal(t, "B", species[1].ID)
}

func TestRefreshSpeciesMetadata_NoMissingIDsIsNoOp(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.WriteDetections([]domain.Detection{det(10, "A")}))
	require.NoError(t, backend.WriteSpecies([]domain.Species{{ID: "A"}}))

	fetcher := newFakeFetcher()
	s, _ := newTestStore(t, backend, fetcher, Options{})

	fetched, err := s.RefreshSpeciesMetadata(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fetched)
	assert.Empty(t, fetcher.speciesIDs, "no fetch may be issued when nothing is missing")
}

func TestRefreshSpeciesProbabilities_Staleness(t *testing.T) {
	backend := store.NewMemory()
	fetcher := newFakeFetcher()
	fetcher.probs = []domain.SpeciesProbability{
		{SpeciesID: "A", Week: 0, Probability: 0.4},
	}
	s, clock := newTestStore(t, backend, fetcher, Options{ProbabilityMaxAge: 7 * 24 * time.Hour})

	// Never refreshed: fetches.
	refreshed, err := s.RefreshSpeciesProbabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, fetcher.probCalls)

	// Three days later: still fresh, no fetch.
	clock.Advance(3 * 24 * time.Hour)
	refreshed, err = s.RefreshSpeciesProbabilities(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 1, fetcher.probCalls)

	// Past the max age: wholesale replace.
	clock.Advance(5 * 24 * time.Hour)
	fetcher.probs = []domain.SpeciesProbability{
		{SpeciesID: "A", Week: 0, Probability: 0.7},
		{SpeciesID: "B", Week: 1, Probability: 0.2},
	}
	refreshed, err = s.RefreshSpeciesProbabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 2, fetcher.probCalls)

	probs, err := backend.ReadProbabilities()
	require.NoError(t, err)
	assert.Len(t, probs, 2, "table is replaced wholesale, not merged")
}

func TestRefreshSpeciesProbabilities_FetchErrorLeavesCacheIntact(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.WriteProbabilities([]domain.SpeciesProbability{
		{SpeciesID: "A", Week: 5, Probability: 0.9},
	}))

	fetcher := newFakeFetcher()
	fetcher.probErr = &domain.FetchError{Op: "probabilities", Err: context.DeadlineExceeded}
	s, _ := newTestStore(t, backend, fetcher, Options{})

	_, err := s.RefreshSpeciesProbabilities(context.Background())
	require.Error(t, err)

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.DatasetProbabilities, syncErr.Dataset)

	probs, readErr := backend.ReadProbabilities()
	require.NoError(t, readErr)
	assert.Len(t, probs, 1, "failed refresh must not clobber the cached table")
}
