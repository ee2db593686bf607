//go:build birdweather

package birdweather

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real BirdWeather API and require a valid
// BIRDWEATHER_STATION_ID env var (the token defaults to the station id).
// Run with: go test -tags=birdweather ./internal/adapter/birdweather/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	stationID := os.Getenv("BIRDWEATHER_STATION_ID")
	if stationID == "" {
		t.Fatal("BIRDWEATHER_STATION_ID must be set to run smoke tests")
	}
	token := os.Getenv("BIRDWEATHER_TOKEN")
	if token == "" {
		token = stationID
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(stationID, token, "https://app.birdweather.com/graphql", 30*time.Second, nil, logger)
}

func TestSmoke_StationOverview(t *testing.T) {
	c := smokeClient(t)

	overview, err := c.StationOverview(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, overview.Name)
	assert.Greater(t, overview.Counts.Detections, 0)
}

func TestSmoke_FetchDetections(t *testing.T) {
	c := smokeClient(t)

	page, err := c.FetchDetections(context.Background(), time.Time{}, "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Records)

	first := page.Records[0]
	assert.NotEmpty(t, first.SpeciesID)
	assert.NotEmpty(t, first.CommonName)
	assert.False(t, first.Timestamp.IsZero())
}

func TestSmoke_FetchProbabilities(t *testing.T) {
	c := smokeClient(t)

	probs, err := c.FetchProbabilities(context.Background())
	require.NoError(t, err)

	for _, p := range probs {
		assert.GreaterOrEqual(t, p.Week, 0)
		assert.LessOrEqual(t, p.Probability, 1.0)
	}
}
