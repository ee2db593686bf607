// Command sync runs one incremental sync of the local BirdWeather cache:
// detections and environment readings behind their watermarks, then the
// species metadata delta and the age-gated probability refresh.
//
// It is designed to be invoked by an external scheduler (cron, launchd) once
// a day. Errors are not retried in-process; a failed dataset keeps its
// previous watermark and the next scheduled run refetches the delta, with
// identity-key dedupe absorbing the overlap. The exit code is non-zero when
// any dataset failed.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fernwhistle/birdweather-cache/internal/adapter/birdweather"
	"github.com/fernwhistle/birdweather-cache/internal/config"
	"github.com/fernwhistle/birdweather-cache/internal/datastore"
	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/observability"
	"github.com/fernwhistle/birdweather-cache/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	backend, err := store.NewParquet(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open local store", "error", err)
		os.Exit(1)
	}

	client := birdweather.NewClient(cfg.StationID, cfg.Token, cfg.APIURL, cfg.FetchTimeout, nil, logger)
	cache := datastore.New(backend, client, logger, metrics, nil, datastore.Options{
		PageSize:          cfg.PageSize,
		MaxPages:          cfg.MaxPages,
		SeedMaxPages:      cfg.SeedMaxPages,
		ProbabilityMaxAge: cfg.ProbabilityMaxAge,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if overview, err := client.StationOverview(ctx); err != nil {
		logger.Warn("station overview unavailable", "error", err)
	} else {
		logger.Info("station",
			"name", overview.Name,
			"location", overview.Location,
			"remote_detections", overview.Counts.Detections,
			"remote_species", overview.Counts.Species,
		)
	}

	failed := false

	for _, dataset := range []domain.Dataset{domain.DatasetDetections, domain.DatasetEnvironment} {
		result, err := cache.Sync(ctx, dataset)
		if err != nil {
			// Pages persisted before the failure stay committed; the
			// watermark is untouched, so the next scheduled run refetches
			// the delta and dedupe drops what already landed.
			logger.Error("dataset sync failed", "dataset", dataset, "error", err,
				"pages_committed", result.Pages, "appended", result.Appended)
			failed = true
		}
	}

	if _, err := cache.RefreshSpeciesMetadata(ctx); err != nil {
		logger.Error("species metadata refresh failed", "error", err)
		failed = true
	}

	if refreshed, err := cache.RefreshSpeciesProbabilities(ctx); err != nil {
		logger.Error("probability refresh failed", "error", err)
		failed = true
	} else if !refreshed {
		logger.Debug("probability table fresh, skipped")
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("sync complete", "data_dir", cfg.DataDir)
}
