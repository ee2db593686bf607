// Package datastore implements the incremental local cache of BirdWeather
// station data: watermark-based sync of the fact datasets, delta refresh of
// species metadata, and age-based refresh of the seasonal probability table.
//
// The storage backend and the remote fetcher are both injected, so the sync
// logic runs against an in-memory backend and a fake fetcher in tests.
package datastore

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/observability"
)

// Backend is the local persistence layer. Fact tables are replaced with a
// merged superset on every write (append-only semantics at the record level);
// reference tables are replaced wholesale. Implementations must make writes
// atomic so a crash never leaves a half-written table.
type Backend interface {
	ReadDetections() ([]domain.Detection, error)
	WriteDetections([]domain.Detection) error

	ReadEnvironment() ([]domain.EnvironmentReading, error)
	WriteEnvironment([]domain.EnvironmentReading) error

	ReadSpecies() ([]domain.Species, error)
	WriteSpecies([]domain.Species) error

	ReadProbabilities() ([]domain.SpeciesProbability, error)
	WriteProbabilities([]domain.SpeciesProbability) error

	ReadState() (domain.SyncState, error)
	WriteState(domain.SyncState) error
}

// Options tunes the sync behaviour. Zero values pick the defaults.
type Options struct {
	// PageSize is the records-per-page request size.
	PageSize int
	// MaxPages caps pagination on an incremental sync. This is a safety
	// bound against mis-paginating responses, not a protocol limit.
	MaxPages int
	// SeedMaxPages caps the first-ever fetch of a dataset, which would
	// otherwise walk the station's entire remote history.
	SeedMaxPages int
	// ProbabilityMaxAge is how old the cached probability table may grow
	// before RefreshSpeciesProbabilities re-fetches it.
	ProbabilityMaxAge time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 400
	}
	if o.SeedMaxPages <= 0 {
		o.SeedMaxPages = 1000
	}
	if o.ProbabilityMaxAge <= 0 {
		o.ProbabilityMaxAge = 7 * 24 * time.Hour
	}
	return o
}

// Store owns the local cached copies of all datasets.
type Store struct {
	backend Backend
	fetcher domain.Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	opts    Options
}

// New creates a Store. Pass a nil clock to use real time.
func New(backend Backend, fetcher domain.Fetcher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		backend: backend,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		opts:    opts.withDefaults(),
	}
}

// SyncResult summarizes one dataset sync.
type SyncResult struct {
	Dataset    domain.Dataset
	Seed       bool // true when the dataset had no watermark yet
	Pages      int
	Fetched    int
	Appended   int
	Duplicates int
	Watermark  time.Time
}

// Sync runs an incremental sync for a fact dataset. Reference datasets are
// not syncable; use RefreshSpeciesMetadata / RefreshSpeciesProbabilities.
func (s *Store) Sync(ctx context.Context, dataset domain.Dataset) (SyncResult, error) {
	switch dataset {
	case domain.DatasetDetections:
		return s.SyncDetections(ctx)
	case domain.DatasetEnvironment:
		return s.SyncEnvironment(ctx)
	default:
		return SyncResult{}, &domain.SyncError{Dataset: dataset, Err: errNotSyncable}
	}
}

// SyncDetections fetches detections newer than the stored watermark, merges
// them into the local table deduplicating by identity key, and advances the
// watermark once the full delta has been fetched and persisted.
func (s *Store) SyncDetections(ctx context.Context) (SyncResult, error) {
	return syncDataset(ctx, s, domain.DatasetDetections,
		s.backend.ReadDetections,
		s.backend.WriteDetections,
		func(ctx context.Context, since time.Time, cursor string) ([]domain.Detection, string, bool, error) {
			page, err := s.fetcher.FetchDetections(ctx, since, cursor, s.opts.PageSize)
			return page.Records, page.NextCursor, page.HasMore, err
		},
		domain.Detection.Key,
		func(d domain.Detection) time.Time { return d.Timestamp },
	)
}

// SyncEnvironment is SyncDetections for environment sensor readings.
func (s *Store) SyncEnvironment(ctx context.Context) (SyncResult, error) {
	return syncDataset(ctx, s, domain.DatasetEnvironment,
		s.backend.ReadEnvironment,
		s.backend.WriteEnvironment,
		func(ctx context.Context, since time.Time, cursor string) ([]domain.EnvironmentReading, string, bool, error) {
			page, err := s.fetcher.FetchEnvironment(ctx, since, cursor, s.opts.PageSize)
			return page.Records, page.NextCursor, page.HasMore, err
		},
		domain.EnvironmentReading.Key,
		func(r domain.EnvironmentReading) time.Time { return r.Timestamp },
	)
}

// syncDataset is the shared watermark/pagination loop. Pages are persisted
// as they arrive so a failed run keeps its partial progress, but the
// watermark is written only once the loop finishes: the remote serves the
// newest records first, so a mid-run watermark write would cover older
// records a failure left unfetched and the next run would filter them out
// forever. After a failure the previous watermark stands and the next run
// refetches the delta, with identity-key dedupe absorbing the overlap.
func syncDataset[T any](
	ctx context.Context,
	s *Store,
	dataset domain.Dataset,
	read func() ([]T, error),
	write func([]T) error,
	fetch func(ctx context.Context, since time.Time, cursor string) ([]T, string, bool, error),
	key func(T) string,
	timestamp func(T) time.Time,
) (SyncResult, error) {
	start := s.clock.Now()

	state, err := s.backend.ReadState()
	if err != nil {
		return SyncResult{Dataset: dataset}, err
	}
	records, err := read()
	if err != nil {
		return SyncResult{Dataset: dataset}, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		seen[key(rec)] = struct{}{}
	}

	since := state.Watermark(dataset)
	result := SyncResult{Dataset: dataset, Seed: since.IsZero(), Watermark: since}

	pageCap := s.opts.MaxPages
	if result.Seed {
		pageCap = s.opts.SeedMaxPages
		s.logger.Info("no watermark, seeding dataset", "dataset", dataset, "page_cap", pageCap)
	}

	var runMax time.Time
	cursor := ""
	for page := 0; page < pageCap; page++ {
		recs, next, hasMore, err := fetch(ctx, since, cursor)
		if err != nil {
			s.observeSync(dataset, "error", start)
			return result, &domain.SyncError{Dataset: dataset, Err: err}
		}

		result.Pages++
		result.Fetched += len(recs)
		if s.metrics != nil {
			s.metrics.PagesFetched.WithLabelValues(string(dataset)).Inc()
		}

		appended := 0
		for _, rec := range recs {
			if ts := timestamp(rec); ts.After(runMax) {
				runMax = ts
			}
			k := key(rec)
			if _, dup := seen[k]; dup {
				result.Duplicates++
				continue
			}
			seen[k] = struct{}{}
			records = append(records, rec)
			appended++
		}

		if appended > 0 {
			sort.Slice(records, func(i, j int) bool {
				return timestamp(records[i]).Before(timestamp(records[j]))
			})
			if err := write(records); err != nil {
				s.observeSync(dataset, "error", start)
				return result, err
			}
			result.Appended += appended
		}

		// A short page is the end-of-stream signal.
		if len(recs) < s.opts.PageSize || !hasMore {
			break
		}
		if next == "" || next == cursor {
			s.observeSync(dataset, "error", start)
			return result, &domain.SyncError{Dataset: dataset, Err: domain.ErrMalformedCursor}
		}
		cursor = next

		if page == pageCap-1 {
			s.logger.Warn("page cap reached before end of stream",
				"dataset", dataset, "page_cap", pageCap)
		}
	}

	// The stream is drained (or the page cap deliberately truncated it, as a
	// bounded seed does), so the fetched range is complete and the watermark
	// may cover it.
	if !runMax.IsZero() {
		state.SetWatermark(dataset, runMax)
		if err := s.backend.WriteState(state); err != nil {
			s.observeSync(dataset, "error", start)
			return result, err
		}
		result.Watermark = state.Watermark(dataset)
	}

	s.observeSync(dataset, "success", start)
	if s.metrics != nil {
		s.metrics.RecordsAppended.WithLabelValues(string(dataset)).Add(float64(result.Appended))
		s.metrics.DuplicatesSkipped.WithLabelValues(string(dataset)).Add(float64(result.Duplicates))
		s.metrics.StoreRows.WithLabelValues(string(dataset)).Set(float64(len(records)))
		if !result.Watermark.IsZero() {
			s.metrics.WatermarkSeconds.WithLabelValues(string(dataset)).Set(float64(result.Watermark.Unix()))
		}
	}
	s.logger.Info("dataset synced",
		"dataset", dataset,
		"pages", result.Pages,
		"fetched", result.Fetched,
		"appended", result.Appended,
		"duplicates", result.Duplicates,
		"rows", len(records),
		"watermark", result.Watermark,
	)
	return result, nil
}

func (s *Store) observeSync(dataset domain.Dataset, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRuns.WithLabelValues(string(dataset), outcome).Inc()
	s.metrics.SyncDuration.WithLabelValues(string(dataset)).Observe(s.clock.Since(start).Seconds())
}
