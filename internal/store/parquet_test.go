package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

func newTestParquet(t *testing.T) *Parquet {
	t.Helper()
	p, err := NewParquet(t.TempDir())
	require.NoError(t, err)
	return p
}

func TestParquet_DetectionsRoundTrip(t *testing.T) {
	p := newTestParquet(t)

	records := []domain.Detection{
		{
			Timestamp:      time.Date(2026, 8, 1, 5, 30, 0, 0, time.UTC),
			SpeciesID:      "144",
			StationID:      "st1",
			CommonName:     "American Robin",
			ScientificName: "Turdus migratorius",
			Confidence:     0.92,
			Probability:    0.88,
			Score:          9.1,
			Certainty:      domain.CertaintyAlmostCertain,
		},
		{
			Timestamp: time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC),
			SpeciesID: "208",
			StationID: "st1",
			Certainty: domain.CertaintyUncertain,
		},
	}
	require.NoError(t, p.WriteDetections(records))

	got, err := p.ReadDetections()
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestParquet_EnvironmentRoundTrip(t *testing.T) {
	p := newTestParquet(t)

	records := []domain.EnvironmentReading{
		{
			Timestamp:          time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			StationID:          "st1",
			Temperature:        23.5,
			Humidity:           61.2,
			BarometricPressure: 1012.7,
			SoundPressureLevel: 41.0,
			AQI:                18,
		},
	}
	require.NoError(t, p.WriteEnvironment(records))

	got, err := p.ReadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestParquet_ReferenceTablesRoundTrip(t *testing.T) {
	p := newTestParquet(t)

	species := []domain.Species{
		{ID: "144", CommonName: "American Robin", ScientificName: "Turdus migratorius", ImageURL: "https://img/robin.jpg"},
	}
	require.NoError(t, p.WriteSpecies(species))
	gotSpecies, err := p.ReadSpecies()
	require.NoError(t, err)
	assert.Equal(t, species, gotSpecies)

	probs := []domain.SpeciesProbability{
		{SpeciesID: "144", CommonName: "American Robin", Week: 31, Probability: 0.83},
	}
	require.NoError(t, p.WriteProbabilities(probs))
	gotProbs, err := p.ReadProbabilities()
	require.NoError(t, err)
	assert.Equal(t, probs, gotProbs)
}

func TestParquet_MissingFilesReadAsEmpty(t *testing.T) {
	p := newTestParquet(t)

	detections, err := p.ReadDetections()
	require.NoError(t, err)
	assert.Empty(t, detections)

	state, err := p.ReadState()
	require.NoError(t, err)
	assert.True(t, state.DetectionsWatermark.IsZero())
}

func TestParquet_StateRoundTrip(t *testing.T) {
	p := newTestParquet(t)

	state := domain.SyncState{
		DetectionsWatermark:      time.Date(2026, 8, 29, 18, 4, 2, 0, time.UTC),
		EnvironmentWatermark:     time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC),
		ProbabilitiesRefreshedAt: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.WriteState(state))

	got, err := p.ReadState()
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestParquet_RewriteLeavesNoTempFiles(t *testing.T) {
	p := newTestParquet(t)

	require.NoError(t, p.WriteSpecies([]domain.Species{{ID: "1", CommonName: "old"}}))
	require.NoError(t, p.WriteSpecies([]domain.Species{{ID: "1", CommonName: "new"}, {ID: "2", CommonName: "added"}}))

	got, err := p.ReadSpecies()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].CommonName)

	entries, err := os.ReadDir(p.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "replacement must not leave temp files behind")
	}
}

func TestParquet_CorruptStateIsStorageError(t *testing.T) {
	p := newTestParquet(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.Dir(), stateFile), []byte("{not json"), 0o644))

	_, err := p.ReadState()
	require.Error(t, err)
	var storageErr *domain.StorageError
	assert.ErrorAs(t, err, &storageErr)
}
