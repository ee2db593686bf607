package store

import (
	"time"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

// Parquet row shapes. Timestamps are stored as unix milliseconds so the
// column type stays a plain INT64 regardless of library defaults.

type detectionRow struct {
	TimestampMS    int64   `parquet:"timestamp_ms"`
	SpeciesID      string  `parquet:"species_id,dict"`
	StationID      string  `parquet:"station_id,dict"`
	CommonName     string  `parquet:"common_name,dict"`
	ScientificName string  `parquet:"scientific_name,dict"`
	Confidence     float64 `parquet:"confidence"`
	Probability    float64 `parquet:"probability"`
	Score          float64 `parquet:"score"`
	Certainty      string  `parquet:"certainty,dict"`
}

func newDetectionRow(d domain.Detection) detectionRow {
	return detectionRow{
		TimestampMS:    d.Timestamp.UnixMilli(),
		SpeciesID:      d.SpeciesID,
		StationID:      d.StationID,
		CommonName:     d.CommonName,
		ScientificName: d.ScientificName,
		Confidence:     d.Confidence,
		Probability:    d.Probability,
		Score:          d.Score,
		Certainty:      d.Certainty,
	}
}

func (r detectionRow) toDomain() domain.Detection {
	return domain.Detection{
		Timestamp:      time.UnixMilli(r.TimestampMS).UTC(),
		SpeciesID:      r.SpeciesID,
		StationID:      r.StationID,
		CommonName:     r.CommonName,
		ScientificName: r.ScientificName,
		Confidence:     r.Confidence,
		Probability:    r.Probability,
		Score:          r.Score,
		Certainty:      r.Certainty,
	}
}

type environmentRow struct {
	TimestampMS        int64   `parquet:"timestamp_ms"`
	StationID          string  `parquet:"station_id,dict"`
	Temperature        float64 `parquet:"temperature"`
	Humidity           float64 `parquet:"humidity"`
	BarometricPressure float64 `parquet:"barometric_pressure"`
	SoundPressureLevel float64 `parquet:"sound_pressure_level"`
	AQI                float64 `parquet:"aqi"`
}

func newEnvironmentRow(r domain.EnvironmentReading) environmentRow {
	return environmentRow{
		TimestampMS:        r.Timestamp.UnixMilli(),
		StationID:          r.StationID,
		Temperature:        r.Temperature,
		Humidity:           r.Humidity,
		BarometricPressure: r.BarometricPressure,
		SoundPressureLevel: r.SoundPressureLevel,
		AQI:                r.AQI,
	}
}

func (r environmentRow) toDomain() domain.EnvironmentReading {
	return domain.EnvironmentReading{
		Timestamp:          time.UnixMilli(r.TimestampMS).UTC(),
		StationID:          r.StationID,
		Temperature:        r.Temperature,
		Humidity:           r.Humidity,
		BarometricPressure: r.BarometricPressure,
		SoundPressureLevel: r.SoundPressureLevel,
		AQI:                r.AQI,
	}
}

type speciesRow struct {
	ID               string `parquet:"id,dict"`
	CommonName       string `parquet:"common_name"`
	ScientificName   string `parquet:"scientific_name"`
	ImageURL         string `parquet:"image_url"`
	ThumbnailURL     string `parquet:"thumbnail_url"`
	Color            string `parquet:"color"`
	EBirdURL         string `parquet:"ebird_url"`
	WikipediaSummary string `parquet:"wikipedia_summary"`
}

type probabilityRow struct {
	SpeciesID   string  `parquet:"species_id,dict"`
	CommonName  string  `parquet:"common_name,dict"`
	Week        int     `parquet:"week"`
	Probability float64 `parquet:"probability"`
}
