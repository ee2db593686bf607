// Package birdweather implements domain.Fetcher against the BirdWeather
// GraphQL API (https://app.birdweather.com/graphql).
package birdweather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

// Client talks to the BirdWeather GraphQL endpoint for a single station.
type Client struct {
	stationID  string
	token      string
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a BirdWeather API client. The station token doubles as
// the bearer token for PUC stations. Pass a nil clock to use real time.
func NewClient(stationID, token, baseURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		stationID:  stationID,
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger,
	}
}

// FetchDetections returns one page of detections newer than since. The API
// serves detections newest-first without a server-side time filter, so
// records at or before since are dropped client-side; the resulting short
// page doubles as the caller's end-of-stream signal once the cached boundary
// is reached.
func (c *Client) FetchDetections(ctx context.Context, since time.Time, cursor string, pageSize int) (domain.DetectionPage, error) {
	vars := map[string]any{"id": c.stationID, "first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	var resp detectionsResponse
	if err := c.query(ctx, detectionsQuery, vars, &resp); err != nil {
		return domain.DetectionPage{}, &domain.FetchError{Op: "detections page", Err: err}
	}

	conn := resp.Station.Detections
	page := domain.DetectionPage{
		NextCursor: conn.PageInfo.EndCursor,
		HasMore:    conn.PageInfo.HasNextPage,
	}
	for _, node := range conn.Nodes {
		ts, err := time.Parse(time.RFC3339, node.Timestamp)
		if err != nil {
			return domain.DetectionPage{}, &domain.FetchError{Op: "detections page", Err: fmt.Errorf("bad timestamp %q: %w", node.Timestamp, err)}
		}
		if !ts.After(since) {
			continue
		}
		page.Records = append(page.Records, domain.Detection{
			Timestamp:      ts.UTC(),
			SpeciesID:      string(node.SpeciesID),
			StationID:      c.stationID,
			CommonName:     node.Species.CommonName,
			ScientificName: node.Species.ScientificName,
			Confidence:     node.Confidence,
			Probability:    node.Probability,
			Score:          node.Score,
			Certainty:      node.Certainty,
		})
	}
	return page, nil
}

// FetchEnvironment returns one page of sensor readings newer than since,
// using the API's server-side period filter.
func (c *Client) FetchEnvironment(ctx context.Context, since time.Time, cursor string, pageSize int) (domain.EnvironmentPage, error) {
	vars := map[string]any{"id": c.stationID, "first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	if !since.IsZero() {
		vars["period"] = map[string]string{
			"from": since.Add(time.Second).UTC().Format(time.RFC3339),
			"to":   c.clock.Now().UTC().Format(time.RFC3339),
		}
	}

	var resp environmentResponse
	if err := c.query(ctx, environmentQuery, vars, &resp); err != nil {
		return domain.EnvironmentPage{}, &domain.FetchError{Op: "environment page", Err: err}
	}

	conn := resp.Station.Sensors.EnvironmentHistory
	page := domain.EnvironmentPage{
		NextCursor: conn.PageInfo.EndCursor,
		HasMore:    conn.PageInfo.HasNextPage,
	}
	for _, node := range conn.Nodes {
		ts, err := time.Parse(time.RFC3339, node.Timestamp)
		if err != nil {
			return domain.EnvironmentPage{}, &domain.FetchError{Op: "environment page", Err: fmt.Errorf("bad timestamp %q: %w", node.Timestamp, err)}
		}
		if !ts.After(since) {
			continue
		}
		page.Records = append(page.Records, domain.EnvironmentReading{
			Timestamp:          ts.UTC(),
			StationID:          c.stationID,
			Temperature:        node.Temperature,
			Humidity:           node.Humidity,
			BarometricPressure: node.BarometricPressure,
			SoundPressureLevel: node.SoundPressureLevel,
			AQI:                node.AQI,
		})
	}
	return page, nil
}

// FetchSpecies returns metadata for the requested species ids via the
// allSpecies root query.
func (c *Client) FetchSpecies(ctx context.Context, ids []string) ([]domain.Species, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp speciesResponse
	if err := c.query(ctx, speciesQuery, map[string]any{"ids": ids}, &resp); err != nil {
		return nil, &domain.FetchError{Op: "species lookup", Err: err}
	}

	out := make([]domain.Species, 0, len(resp.AllSpecies))
	for _, sp := range resp.AllSpecies {
		out = append(out, domain.Species{
			ID:               string(sp.ID),
			CommonName:       sp.CommonName,
			ScientificName:   sp.ScientificName,
			ImageURL:         sp.ImageURL,
			ThumbnailURL:     sp.ThumbnailURL,
			Color:            sp.Color,
			EBirdURL:         sp.EBirdURL,
			WikipediaSummary: sp.WikipediaSummary,
		})
	}
	return out, nil
}

// FetchProbabilities returns the station's seasonal model flattened into one
// row per species per week.
func (c *Client) FetchProbabilities(ctx context.Context) ([]domain.SpeciesProbability, error) {
	var resp probabilitiesResponse
	if err := c.query(ctx, probabilitiesQuery, map[string]any{"id": c.stationID}, &resp); err != nil {
		return nil, &domain.FetchError{Op: "probabilities", Err: err}
	}

	var out []domain.SpeciesProbability
	for _, sp := range resp.Station.Probabilities {
		for week, prob := range sp.Weeks {
			out = append(out, domain.SpeciesProbability{
				SpeciesID:   string(sp.SpeciesID),
				CommonName:  sp.Species.CommonName,
				Week:        week,
				Probability: prob,
			})
		}
	}
	return out, nil
}

// StationOverview fetches station metadata: name, location, totals, and the
// detection date range.
func (c *Client) StationOverview(ctx context.Context) (Overview, error) {
	var resp overviewResponse
	if err := c.query(ctx, overviewQuery, map[string]any{"id": c.stationID}, &resp); err != nil {
		return Overview{}, &domain.FetchError{Op: "station overview", Err: err}
	}
	return resp.Station, nil
}

// query posts one GraphQL operation and decodes the data envelope into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("graphql API error: status %d: %s", resp.StatusCode, body)
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql errors: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
