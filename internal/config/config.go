package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all settings for the sync run and the dashboard server,
// populated from environment variables. A .env file in the working directory
// is honoured when present (loaded by the entrypoints via godotenv).
type Config struct {
	// BirdWeather API.
	StationID    string
	Token        string
	APIURL       string
	FetchTimeout time.Duration

	// Pagination. PageSize is the records-per-page request; MaxPages is a
	// safety cap against mis-paginating responses, not a protocol limit.
	// SeedMaxPages bounds the first-ever fetch, which would otherwise walk
	// the station's entire history.
	PageSize     int
	MaxPages     int
	SeedMaxPages int

	// Local store.
	DataDir string

	// Reference-data staleness.
	ProbabilityMaxAge time.Duration

	// Dashboard server.
	HTTPAddr          string
	AggregateCacheTTL time.Duration
	ShutdownTimeout   time.Duration

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	pageSize, err := envInt("BW_PAGE_SIZE", 100, 1, 1000)
	if err != nil {
		return nil, err
	}
	maxPages, err := envInt("BW_MAX_PAGES", 400, 1, 10000)
	if err != nil {
		return nil, err
	}
	seedMaxPages, err := envInt("BW_SEED_MAX_PAGES", 1000, 1, 100000)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("BW_FETCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	probMaxAge, err := envDuration("BW_PROBABILITY_MAX_AGE", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("AGGREGATE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StationID:    os.Getenv("BIRDWEATHER_STATION_ID"),
		Token:        os.Getenv("BIRDWEATHER_TOKEN"),
		APIURL:       envOrDefault("BIRDWEATHER_API_URL", "https://app.birdweather.com/graphql"),
		FetchTimeout: fetchTimeout,

		PageSize:     pageSize,
		MaxPages:     maxPages,
		SeedMaxPages: seedMaxPages,

		DataDir: envOrDefault("DATA_DIR", "data"),

		ProbabilityMaxAge: probMaxAge,

		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		AggregateCacheTTL: cacheTTL,
		ShutdownTimeout:   shutdownTimeout,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.StationID == "" {
		return nil, errors.New("BIRDWEATHER_STATION_ID is required")
	}
	// The station token doubles as the API token for PUC stations.
	if cfg.Token == "" {
		cfg.Token = cfg.StationID
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, minVal, maxVal)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
