package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/observability"
	"github.com/fernwhistle/birdweather-cache/internal/store"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, backend *store.Memory) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(testNow)
	return NewServer(":0", backend, clock, metrics, time.Minute, logger)
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func seedDetections(t *testing.T, backend *store.Memory, detections ...domain.Detection) {
	t.Helper()
	require.NoError(t, backend.WriteDetections(detections))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadyz_BeforeAndAfterFirstSync(t *testing.T) {
	backend := store.NewMemory()
	srv := newTestServer(t, backend)

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, backend.WriteState(domain.SyncState{
		DetectionsWatermark: testNow.Add(-time.Hour),
	}))

	rec = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestTopSpecies_WindowAndLimit(t *testing.T) {
	backend := store.NewMemory()
	seedDetections(t, backend,
		domain.Detection{Timestamp: testNow.Add(-24 * time.Hour), SpeciesID: "robin", StationID: "st1"},
		domain.Detection{Timestamp: testNow.Add(-25 * time.Hour), SpeciesID: "robin", StationID: "st1"},
		domain.Detection{Timestamp: testNow.Add(-26 * time.Hour), SpeciesID: "jay", StationID: "st1"},
		// Outside the default 7-day window.
		domain.Detection{Timestamp: testNow.Add(-30 * 24 * time.Hour), SpeciesID: "wren", StationID: "st1"},
	)
	require.NoError(t, backend.WriteSpecies([]domain.Species{
		{ID: "robin", ImageURL: "https://img/robin.jpg"},
	}))
	srv := newTestServer(t, backend)

	rec := get(t, srv, "/api/v1/top-species")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2, "out-of-window species must not appear")
	assert.Equal(t, "robin", rows[0]["species_id"])
	assert.Equal(t, float64(2), rows[0]["count"])
	assert.Equal(t, "https://img/robin.jpg", rows[0]["image_url"])

	rec = get(t, srv, "/api/v1/top-species?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)
}

func TestDaily_DaysParamAndZeroFill(t *testing.T) {
	backend := store.NewMemory()
	seedDetections(t, backend,
		domain.Detection{Timestamp: testNow.Add(-2 * 24 * time.Hour), SpeciesID: "robin", StationID: "st1"},
	)
	srv := newTestServer(t, backend)

	rec := get(t, srv, "/api/v1/daily?days=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 5, "one entry per requested day, zero-filled")

	var total float64
	for _, row := range rows {
		total += row["count"].(float64)
	}
	assert.Equal(t, float64(1), total)
}

func TestAggregate_InvalidDaysParam(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	for _, days := range []string{"yesterday", "0", "-3", "99999"} {
		rec := get(t, srv, "/api/v1/daily?days="+days)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "days=%s", days)
	}
}

func TestAggregate_ResponseCache(t *testing.T) {
	backend := store.NewMemory()
	seedDetections(t, backend,
		domain.Detection{Timestamp: testNow.Add(-time.Hour), SpeciesID: "robin", StationID: "st1"},
	)
	srv := newTestServer(t, backend)

	first := get(t, srv, "/api/v1/hourly")
	require.Equal(t, http.StatusOK, first.Code)

	// New data within the TTL is not reflected: the cached view is served.
	seedDetections(t, backend,
		domain.Detection{Timestamp: testNow.Add(-time.Hour), SpeciesID: "robin", StationID: "st1"},
		domain.Detection{Timestamp: testNow.Add(-2 * time.Hour), SpeciesID: "jay", StationID: "st1"},
	)
	second := get(t, srv, "/api/v1/hourly")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// A different query string is a different cache entry.
	third := get(t, srv, "/api/v1/hourly?days=3")
	require.Equal(t, http.StatusOK, third.Code)
	assert.NotEqual(t, first.Body.String(), third.Body.String())
}

func TestEnvironmentDaily(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.WriteEnvironment([]domain.EnvironmentReading{
		{Timestamp: testNow.Add(-time.Hour), StationID: "st1", Temperature: 20},
		{Timestamp: testNow.Add(-2 * time.Hour), StationID: "st1", Temperature: 30},
	}))
	srv := newTestServer(t, backend)

	rec := get(t, srv, "/api/v1/environment/daily?days=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, float64(2), rows[1]["samples"])
	assert.Equal(t, float64(25), rows[1]["temperature_mean"])
	assert.Equal(t, float64(0), rows[0]["samples"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
