package datastore

import (
	"context"
	"errors"
	"sort"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

var errNotSyncable = errors.New("dataset is not incrementally syncable")

// RefreshSpeciesMetadata fetches metadata for species ids that appear in
// local detections but are missing from the cached species table, and
// replaces the table with the merged result. Ids already cached are never
// refetched. Returns the number of species fetched.
func (s *Store) RefreshSpeciesMetadata(ctx context.Context) (int, error) {
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return 0, err
	}
	species, err := s.backend.ReadSpecies()
	if err != nil {
		return 0, err
	}

	cached := make(map[string]struct{}, len(species))
	for _, sp := range species {
		cached[sp.ID] = struct{}{}
	}

	missing := make(map[string]struct{})
	for _, d := range detections {
		if _, ok := cached[d.SpeciesID]; !ok {
			missing[d.SpeciesID] = struct{}{}
		}
	}
	if len(missing) == 0 {
		s.logger.Debug("species metadata up to date", "cached", len(cached))
		return 0, nil
	}

	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fetched, err := s.fetcher.FetchSpecies(ctx, ids)
	if err != nil {
		return 0, &domain.SyncError{Dataset: domain.DatasetSpecies, Err: err}
	}

	merged := append(species, fetched...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	if err := s.backend.WriteSpecies(merged); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SpeciesFetched.Add(float64(len(fetched)))
		s.metrics.StoreRows.WithLabelValues(string(domain.DatasetSpecies)).Set(float64(len(merged)))
	}
	s.logger.Info("species metadata refreshed", "missing", len(ids), "fetched", len(fetched), "rows", len(merged))
	return len(fetched), nil
}

// RefreshSpeciesProbabilities replaces the seasonal probability table when
// the cached copy is older than the configured max age. Returns true when a
// refresh happened.
func (s *Store) RefreshSpeciesProbabilities(ctx context.Context) (bool, error) {
	state, err := s.backend.ReadState()
	if err != nil {
		return false, err
	}

	if !state.ProbabilitiesRefreshedAt.IsZero() {
		if age := s.clock.Since(state.ProbabilitiesRefreshedAt); age < s.opts.ProbabilityMaxAge {
			s.logger.Debug("probability table still fresh", "age", age, "max_age", s.opts.ProbabilityMaxAge)
			return false, nil
		}
	}

	probs, err := s.fetcher.FetchProbabilities(ctx)
	if err != nil {
		return false, &domain.SyncError{Dataset: domain.DatasetProbabilities, Err: err}
	}
	if err := s.backend.WriteProbabilities(probs); err != nil {
		return false, err
	}

	state.ProbabilitiesRefreshedAt = s.clock.Now()
	if err := s.backend.WriteState(state); err != nil {
		return false, err
	}

	if s.metrics != nil {
		s.metrics.ProbabilityRefreshes.Inc()
		s.metrics.StoreRows.WithLabelValues(string(domain.DatasetProbabilities)).Set(float64(len(probs)))
	}
	s.logger.Info("probability table refreshed", "rows", len(probs))
	return true, nil
}
