package domain

import (
	"context"
	"time"
)

// DetectionPage is one page of detections from the remote API. Records within
// a page carry no ordering guarantee.
type DetectionPage struct {
	Records    []Detection
	NextCursor string
	HasMore    bool
}

// EnvironmentPage is one page of environment readings from the remote API.
type EnvironmentPage struct {
	Records    []EnvironmentReading
	NextCursor string
	HasMore    bool
}

// Fetcher is the remote BirdWeather API as seen by the cache store.
//
// Paged methods return records with timestamp strictly after since (the
// server must not silently drop newer records, but may return overlapping
// data across calls). An empty cursor requests the first page.
type Fetcher interface {
	FetchDetections(ctx context.Context, since time.Time, cursor string, pageSize int) (DetectionPage, error)
	FetchEnvironment(ctx context.Context, since time.Time, cursor string, pageSize int) (EnvironmentPage, error)

	// FetchSpecies returns metadata for exactly the requested species ids.
	FetchSpecies(ctx context.Context, ids []string) ([]Species, error)

	// FetchProbabilities returns the station's full seasonal probability table.
	FetchProbabilities(ctx context.Context) ([]SpeciesProbability, error)
}
