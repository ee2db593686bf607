package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// cache store and dashboard server.
type Metrics struct {
	SyncRuns          *prometheus.CounterVec // labels: dataset, outcome={success,error}
	PagesFetched      *prometheus.CounterVec // labels: dataset
	RecordsAppended   *prometheus.CounterVec // labels: dataset
	DuplicatesSkipped *prometheus.CounterVec // labels: dataset
	SyncDuration      *prometheus.HistogramVec
	WatermarkSeconds  *prometheus.GaugeVec // unix seconds of the dataset watermark
	StoreRows         *prometheus.GaugeVec // rows in the local table after sync

	SpeciesFetched       prometheus.Counter
	ProbabilityRefreshes prometheus.Counter

	AggregateCache *prometheus.CounterVec // labels: view, result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SyncRuns,
		m.PagesFetched,
		m.RecordsAppended,
		m.DuplicatesSkipped,
		m.SyncDuration,
		m.WatermarkSeconds,
		m.StoreRows,
		m.SpeciesFetched,
		m.ProbabilityRefreshes,
		m.AggregateCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "sync_runs_total",
			Help:      "Sync invocations by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "pages_fetched_total",
			Help:      "Remote pages fetched per dataset.",
		}, []string{"dataset"}),
		RecordsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "records_appended_total",
			Help:      "New records persisted to the local store per dataset.",
		}, []string{"dataset"}),
		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "duplicates_skipped_total",
			Help:      "Fetched records dropped because their identity key was already cached.",
		}, []string{"dataset"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bwcache",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete dataset sync.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"dataset"}),
		WatermarkSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bwcache",
			Name:      "watermark_timestamp_seconds",
			Help:      "Unix timestamp of the dataset watermark after the last sync.",
		}, []string{"dataset"}),
		StoreRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bwcache",
			Name:      "store_rows",
			Help:      "Rows in the local table after the last sync.",
		}, []string{"dataset"}),
		SpeciesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "species_metadata_fetched_total",
			Help:      "Species ids fetched to fill metadata gaps.",
		}),
		ProbabilityRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "probability_refreshes_total",
			Help:      "Wholesale refreshes of the seasonal probability table.",
		}),
		AggregateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bwcache",
			Name:      "aggregate_cache_total",
			Help:      "Dashboard aggregate cache lookups by view and result.",
		}, []string{"view", "result"}),
	}
}
