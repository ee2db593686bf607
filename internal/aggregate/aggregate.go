// Package aggregate derives read-only summary views from locally persisted
// records. Every function is pure: no network, no clock, no mutation of its
// inputs, and deterministic output for the same store contents. Buckets with
// no records inside the requested window are emitted with an explicit zero
// count rather than omitted, so chart axes stay dense.
package aggregate

import (
	"sort"
	"time"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

// SpeciesCount is one row of the top-species view: detection totals with a
// certainty breakdown, joined against cached species metadata.
type SpeciesCount struct {
	SpeciesID          string  `json:"species_id"`
	CommonName         string  `json:"common_name"`
	ScientificName     string  `json:"scientific_name"`
	ImageURL           string  `json:"image_url,omitempty"`
	ThumbnailURL       string  `json:"thumbnail_url,omitempty"`
	Color              string  `json:"color,omitempty"`
	EBirdURL           string  `json:"ebird_url,omitempty"`
	Count              int     `json:"count"`
	AlmostCertain      int     `json:"almost_certain"`
	VeryLikely         int     `json:"very_likely"`
	Uncertain          int     `json:"uncertain"`
	Unlikely           int     `json:"unlikely"`
	AverageProbability float64 `json:"average_probability"`
}

// TopSpecies counts in-window detections per species, ordered by count
// descending with ties broken by species id ascending, truncated to limit
// (limit <= 0 means no truncation).
func TopSpecies(detections []domain.Detection, species []domain.Species, w domain.Window, limit int) []SpeciesCount {
	meta := make(map[string]domain.Species, len(species))
	for _, sp := range species {
		meta[sp.ID] = sp
	}

	byID := make(map[string]*SpeciesCount)
	probSum := make(map[string]float64)
	for _, d := range detections {
		if !w.Contains(d.Timestamp) {
			continue
		}
		row, ok := byID[d.SpeciesID]
		if !ok {
			row = &SpeciesCount{
				SpeciesID:      d.SpeciesID,
				CommonName:     d.CommonName,
				ScientificName: d.ScientificName,
			}
			if m, ok := meta[d.SpeciesID]; ok {
				row.ImageURL = m.ImageURL
				row.ThumbnailURL = m.ThumbnailURL
				row.Color = m.Color
				row.EBirdURL = m.EBirdURL
			}
			byID[d.SpeciesID] = row
		}
		row.Count++
		probSum[d.SpeciesID] += d.Probability
		switch d.Certainty {
		case domain.CertaintyAlmostCertain:
			row.AlmostCertain++
		case domain.CertaintyVeryLikely:
			row.VeryLikely++
		case domain.CertaintyUncertain:
			row.Uncertain++
		case domain.CertaintyUnlikely:
			row.Unlikely++
		}
	}

	rows := make([]SpeciesCount, 0, len(byID))
	for id, row := range byID {
		row.AverageProbability = probSum[id] / float64(row.Count)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].SpeciesID < rows[j].SpeciesID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// DailyCount is the detection total for one day.
type DailyCount struct {
	Date      time.Time `json:"date"`
	DayOfYear int       `json:"day_of_year"`
	Count     int       `json:"count"`
}

// DailyCounts returns exactly one entry per day in the window, inclusive,
// in ascending date order.
func DailyCounts(detections []domain.Detection, w domain.Window) []DailyCount {
	perDay := make(map[time.Time]int)
	for _, d := range detections {
		if !w.Contains(d.Timestamp) {
			continue
		}
		perDay[domain.DayOf(d.Timestamp)]++
	}

	days := w.Days()
	out := make([]DailyCount, len(days))
	for i, day := range days {
		out[i] = DailyCount{Date: day, DayOfYear: day.YearDay(), Count: perDay[day]}
	}
	return out
}

// HourCount is the detection total for one hour of the day across the window.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// HourlyCounts buckets in-window detections by hour of day (UTC). Always
// returns 24 entries.
func HourlyCounts(detections []domain.Detection, w domain.Window) []HourCount {
	var bins [24]int
	for _, d := range detections {
		if !w.Contains(d.Timestamp) {
			continue
		}
		bins[d.Timestamp.UTC().Hour()]++
	}
	out := make([]HourCount, 24)
	for h := range bins {
		out[h] = HourCount{Hour: h, Count: bins[h]}
	}
	return out
}

// MonthCount is the detection total for one calendar month.
type MonthCount struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Count int        `json:"count"`
}

// MonthlyVolume returns one entry per calendar month touched by the window,
// in ascending order, including zero months.
func MonthlyVolume(detections []domain.Detection, w domain.Window) []MonthCount {
	perMonth := make(map[time.Time]int)
	for _, d := range detections {
		if !w.Contains(d.Timestamp) {
			continue
		}
		perMonth[monthOf(d.Timestamp)]++
	}

	var out []MonthCount
	for m := monthOf(w.Start); !m.After(monthOf(w.End)); m = m.AddDate(0, 1, 0) {
		out = append(out, MonthCount{Year: m.Year(), Month: m.Month(), Count: perMonth[m]})
	}
	return out
}

// SpeciesHourRow is one species' detection counts across the 24 hours of the
// day.
type SpeciesHourRow struct {
	SpeciesID  string  `json:"species_id"`
	CommonName string  `json:"common_name"`
	Total      int     `json:"total"`
	Hours      [24]int `json:"hours"`
}

// SpeciesByHour builds the species-by-hour matrix for in-window detections,
// ordered by total descending with ties broken by species id ascending.
func SpeciesByHour(detections []domain.Detection, w domain.Window) []SpeciesHourRow {
	byID := make(map[string]*SpeciesHourRow)
	for _, d := range detections {
		if !w.Contains(d.Timestamp) {
			continue
		}
		row, ok := byID[d.SpeciesID]
		if !ok {
			row = &SpeciesHourRow{SpeciesID: d.SpeciesID, CommonName: d.CommonName}
			byID[d.SpeciesID] = row
		}
		row.Total++
		row.Hours[d.Timestamp.UTC().Hour()]++
	}

	rows := make([]SpeciesHourRow, 0, len(byID))
	for _, row := range byID {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].SpeciesID < rows[j].SpeciesID
	})
	return rows
}

// EnvironmentDay is the daily summary of sensor readings. Days without
// samples keep zero means and Samples == 0 so consumers can distinguish
// "no data" from "measured zero".
type EnvironmentDay struct {
	Date            time.Time `json:"date"`
	Samples         int       `json:"samples"`
	TemperatureMean float64   `json:"temperature_mean"`
	HumidityMean    float64   `json:"humidity_mean"`
	PressureMean    float64   `json:"pressure_mean"`
}

// EnvironmentDaily averages readings per day over the window, one entry per
// day inclusive.
func EnvironmentDaily(readings []domain.EnvironmentReading, w domain.Window) []EnvironmentDay {
	type acc struct {
		n                     int
		temp, humid, pressure float64
	}
	perDay := make(map[time.Time]*acc)
	for _, r := range readings {
		if !w.Contains(r.Timestamp) {
			continue
		}
		day := domain.DayOf(r.Timestamp)
		a, ok := perDay[day]
		if !ok {
			a = &acc{}
			perDay[day] = a
		}
		a.n++
		a.temp += r.Temperature
		a.humid += r.Humidity
		a.pressure += r.BarometricPressure
	}

	days := w.Days()
	out := make([]EnvironmentDay, len(days))
	for i, day := range days {
		out[i] = EnvironmentDay{Date: day}
		if a, ok := perDay[day]; ok {
			out[i].Samples = a.n
			out[i].TemperatureMean = a.temp / float64(a.n)
			out[i].HumidityMean = a.humid / float64(a.n)
			out[i].PressureMean = a.pressure / float64(a.n)
		}
	}
	return out
}

func monthOf(ts time.Time) time.Time {
	t := ts.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
