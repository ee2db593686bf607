package domain

import (
	"fmt"
	"time"
)

// Dataset names a locally cached table. Fact datasets (detections,
// environment) sync incrementally behind a watermark; reference datasets
// (species, probabilities) are replaced wholesale.
type Dataset string

const (
	DatasetDetections    Dataset = "detections"
	DatasetEnvironment   Dataset = "environment"
	DatasetSpecies       Dataset = "species"
	DatasetProbabilities Dataset = "probabilities"
)

// Certainty buckets as reported by the BirdWeather API.
const (
	CertaintyAlmostCertain = "almost_certain"
	CertaintyVeryLikely    = "very_likely"
	CertaintyUncertain     = "uncertain"
	CertaintyUnlikely      = "unlikely"
)

// Detection is a single classified bird vocalization. Immutable fact.
type Detection struct {
	Timestamp      time.Time `json:"timestamp"`
	SpeciesID      string    `json:"species_id"`
	StationID      string    `json:"station_id"`
	CommonName     string    `json:"common_name"`
	ScientificName string    `json:"scientific_name"`
	Confidence     float64   `json:"confidence"`
	Probability    float64   `json:"probability"`
	Score          float64   `json:"score"`
	Certainty      string    `json:"certainty"`
}

// Key returns the identity key used to deduplicate detections across
// overlapping fetches.
func (d Detection) Key() string {
	return fmt.Sprintf("%d|%s|%s", d.Timestamp.UnixMilli(), d.SpeciesID, d.StationID)
}

// EnvironmentReading is a single sensor sample from the station. Immutable fact.
type EnvironmentReading struct {
	Timestamp          time.Time `json:"timestamp"`
	StationID          string    `json:"station_id"`
	Temperature        float64   `json:"temperature"`
	Humidity           float64   `json:"humidity"`
	BarometricPressure float64   `json:"barometric_pressure"`
	SoundPressureLevel float64   `json:"sound_pressure_level"`
	AQI                float64   `json:"aqi"`
}

// Key returns the identity key used to deduplicate readings.
func (r EnvironmentReading) Key() string {
	return fmt.Sprintf("%d|%s", r.Timestamp.UnixMilli(), r.StationID)
}

// Species is reference metadata for one species. The cached table grows as
// new species ids appear in detections; entries already cached are kept.
type Species struct {
	ID               string `json:"id"`
	CommonName       string `json:"common_name"`
	ScientificName   string `json:"scientific_name"`
	ImageURL         string `json:"image_url,omitempty"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty"`
	Color            string `json:"color,omitempty"`
	EBirdURL         string `json:"ebird_url,omitempty"`
	WikipediaSummary string `json:"wikipedia_summary,omitempty"`
}

// SpeciesProbability is the station's seasonal model: the likelihood of
// detecting a species during a given ISO week of the year (0-52).
type SpeciesProbability struct {
	SpeciesID   string  `json:"species_id"`
	CommonName  string  `json:"common_name"`
	Week        int     `json:"week"`
	Probability float64 `json:"probability"`
}

// SyncState holds the per-dataset watermarks and reference-table refresh
// times. A zero watermark means the dataset has never been seeded.
type SyncState struct {
	DetectionsWatermark      time.Time `json:"detections_watermark"`
	EnvironmentWatermark     time.Time `json:"environment_watermark"`
	ProbabilitiesRefreshedAt time.Time `json:"probabilities_refreshed_at"`
}

// Watermark returns the stored watermark for a fact dataset.
func (s SyncState) Watermark(dataset Dataset) time.Time {
	switch dataset {
	case DatasetDetections:
		return s.DetectionsWatermark
	case DatasetEnvironment:
		return s.EnvironmentWatermark
	default:
		return time.Time{}
	}
}

// SetWatermark records a new watermark for a fact dataset. Regressions are
// ignored so the watermark stays monotonically non-decreasing.
func (s *SyncState) SetWatermark(dataset Dataset, ts time.Time) {
	switch dataset {
	case DatasetDetections:
		if ts.After(s.DetectionsWatermark) {
			s.DetectionsWatermark = ts
		}
	case DatasetEnvironment:
		if ts.After(s.EnvironmentWatermark) {
			s.EnvironmentWatermark = ts
		}
	}
}
