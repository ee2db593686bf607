// Package http serves the cached aggregates to the dashboard, plus health,
// readiness, and Prometheus metrics endpoints. It reads only from the local
// store; no handler ever touches the remote API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fernwhistle/birdweather-cache/internal/aggregate"
	"github.com/fernwhistle/birdweather-cache/internal/datastore"
	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/observability"
)

// Server exposes the aggregate views over HTTP. Responses are cached with a
// TTL so a dashboard refresh storm does not re-read and re-aggregate the
// parquet files on every request.
type Server struct {
	httpServer *http.Server
	backend    datastore.Backend
	cache      *gocache.Cache
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires the routes. Pass a nil clock to use real time.
func NewServer(addr string, backend datastore.Backend, clock clockwork.Clock, metrics *observability.Metrics, cacheTTL time.Duration, logger *slog.Logger) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		backend: backend,
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/top-species", s.aggregateHandler("top_species", 7, s.buildTopSpecies))
	mux.HandleFunc("GET /api/v1/daily", s.aggregateHandler("daily_counts", 30, s.buildDaily))
	mux.HandleFunc("GET /api/v1/hourly", s.aggregateHandler("hourly_counts", 7, s.buildHourly))
	mux.HandleFunc("GET /api/v1/monthly", s.aggregateHandler("monthly_volume", 365, s.buildMonthly))
	mux.HandleFunc("GET /api/v1/species-hours", s.aggregateHandler("species_by_hour", 7, s.buildSpeciesHours))
	mux.HandleFunc("GET /api/v1/environment/daily", s.aggregateHandler("environment_daily", 30, s.buildEnvironmentDaily))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once the detections dataset has been seeded.
// Before the first successful sync the dashboard has nothing to show.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	state, err := s.backend.ReadState()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}
	if state.DetectionsWatermark.IsZero() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": "detections never synced"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"watermark": state.DetectionsWatermark.Format(time.RFC3339),
	})
}

// aggregateHandler wraps a view builder with window parsing and the TTL
// response cache.
func (s *Server) aggregateHandler(view string, defaultDays int, build func(w domain.Window, r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := queryInt(r, "days", defaultDays, 1, 3650)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		window := domain.LastNDays(s.clock.Now(), days)

		cacheKey := view + "?" + r.URL.RawQuery
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.observeCache(view, "hit")
			writeJSON(w, http.StatusOK, cached)
			return
		}
		s.observeCache(view, "miss")

		result, err := build(window, r)
		if err != nil {
			s.logger.Error("aggregate view failed", "view", view, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read local store"})
			return
		}

		s.cache.SetDefault(cacheKey, result)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) buildTopSpecies(w domain.Window, r *http.Request) (any, error) {
	limit, err := queryInt(r, "limit", 25, 1, 1000)
	if err != nil {
		return nil, err
	}
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	species, err := s.backend.ReadSpecies()
	if err != nil {
		return nil, err
	}
	return aggregate.TopSpecies(detections, species, w, limit), nil
}

func (s *Server) buildDaily(w domain.Window, _ *http.Request) (any, error) {
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	return aggregate.DailyCounts(detections, w), nil
}

func (s *Server) buildHourly(w domain.Window, _ *http.Request) (any, error) {
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	return aggregate.HourlyCounts(detections, w), nil
}

func (s *Server) buildMonthly(w domain.Window, _ *http.Request) (any, error) {
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	return aggregate.MonthlyVolume(detections, w), nil
}

func (s *Server) buildSpeciesHours(w domain.Window, _ *http.Request) (any, error) {
	detections, err := s.backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	return aggregate.SpeciesByHour(detections, w), nil
}

func (s *Server) buildEnvironmentDaily(w domain.Window, _ *http.Request) (any, error) {
	readings, err := s.backend.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	return aggregate.EnvironmentDaily(readings, w), nil
}

func (s *Server) observeCache(view, result string) {
	if s.metrics != nil {
		s.metrics.AggregateCache.WithLabelValues(view, result).Inc()
	}
}

func queryInt(r *http.Request, key string, fallback, minVal, maxVal int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, minVal, maxVal)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
