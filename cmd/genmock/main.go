// Command genmock writes a deterministic synthetic local store so the
// dashboard can be developed without a station or network access. It goes
// through the real parquet backend, so the files match what sync produces.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data-mock -days 30 -per-day 120
package main

import (
	"flag"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
	"github.com/fernwhistle/birdweather-cache/internal/store"
)

// baseDate anchors the generated history so repeated runs are reproducible.
var baseDate = time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

var mockSpecies = []domain.Species{
	{ID: "144", CommonName: "American Robin", ScientificName: "Turdus migratorius", Color: "#b35a2d"},
	{ID: "208", CommonName: "Blue Jay", ScientificName: "Cyanocitta cristata", Color: "#4a7fb5"},
	{ID: "325", CommonName: "Northern Cardinal", ScientificName: "Cardinalis cardinalis", Color: "#c22f2f"},
	{ID: "417", CommonName: "Carolina Wren", ScientificName: "Thryothorus ludovicianus", Color: "#9c7a4b"},
	{ID: "512", CommonName: "Tufted Titmouse", ScientificName: "Baeolophus bicolor", Color: "#8a8f98"},
	{ID: "633", CommonName: "Mourning Dove", ScientificName: "Zenaida macroura", Color: "#b0a090"},
}

var certainties = []string{
	domain.CertaintyAlmostCertain,
	domain.CertaintyVeryLikely,
	domain.CertaintyUncertain,
	domain.CertaintyUnlikely,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data-mock", "output data directory")
	days := flag.Int("days", 30, "days of history to generate")
	perDay := flag.Int("per-day", 120, "average detections per day")
	stationID := flag.String("station-id", "12345", "station id stamped on records")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	backend, err := store.NewParquet(*dataDir)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	detections := genDetections(rng, *stationID, *days, *perDay)
	environment := genEnvironment(rng, *stationID, *days)
	probabilities := genProbabilities(rng)

	if err := backend.WriteDetections(detections); err != nil {
		return err
	}
	if err := backend.WriteEnvironment(environment); err != nil {
		return err
	}
	if err := backend.WriteSpecies(mockSpecies); err != nil {
		return err
	}
	if err := backend.WriteProbabilities(probabilities); err != nil {
		return err
	}

	if err := backend.WriteState(buildState(detections, environment, *days)); err != nil {
		return err
	}

	log.Printf("wrote %d detections, %d readings, %d species, %d probability rows to %s",
		len(detections), len(environment), len(mockSpecies), len(probabilities), *dataDir)
	return nil
}

// buildState stamps watermarks matching the generated history. Empty
// datasets (e.g. -days 0) keep a zero watermark, as a never-synced store
// would.
func buildState(detections []domain.Detection, environment []domain.EnvironmentReading, days int) domain.SyncState {
	state := domain.SyncState{ProbabilitiesRefreshedAt: baseDate.AddDate(0, 0, days)}
	if len(detections) > 0 {
		state.SetWatermark(domain.DatasetDetections, detections[len(detections)-1].Timestamp)
	}
	if len(environment) > 0 {
		state.SetWatermark(domain.DatasetEnvironment, environment[len(environment)-1].Timestamp)
	}
	return state
}

// genDetections produces a dawn-chorus-shaped distribution: most activity in
// the early morning hours, a smaller evening bump.
func genDetections(rng *rand.Rand, stationID string, days, perDay int) []domain.Detection {
	var out []domain.Detection
	for day := 0; day < days; day++ {
		n := perDay/2 + rng.Intn(perDay)
		for i := 0; i < n; i++ {
			sp := mockSpecies[rng.Intn(len(mockSpecies))]
			hour := chorusHour(rng)
			ts := baseDate.AddDate(0, 0, day).
				Add(time.Duration(hour)*time.Hour +
					time.Duration(rng.Intn(3600))*time.Second)
			confidence := 0.5 + rng.Float64()*0.5
			out = append(out, domain.Detection{
				Timestamp:      ts,
				SpeciesID:      sp.ID,
				StationID:      stationID,
				CommonName:     sp.CommonName,
				ScientificName: sp.ScientificName,
				Confidence:     confidence,
				Probability:    confidence * 0.9,
				Score:          confidence * 10,
				Certainty:      certainties[rng.Intn(len(certainties))],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return dedupe(out)
}

func chorusHour(rng *rand.Rand) int {
	switch r := rng.Float64(); {
	case r < 0.5:
		return 5 + rng.Intn(4) // dawn chorus
	case r < 0.75:
		return 17 + rng.Intn(3) // evening bump
	default:
		return rng.Intn(24)
	}
}

// dedupe drops generated collisions on the identity key, mirroring what the
// real sync would do.
func dedupe(detections []domain.Detection) []domain.Detection {
	seen := make(map[string]struct{}, len(detections))
	out := detections[:0]
	for _, d := range detections {
		if _, dup := seen[d.Key()]; dup {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	return out
}

func genEnvironment(rng *rand.Rand, stationID string, days int) []domain.EnvironmentReading {
	var out []domain.EnvironmentReading
	for day := 0; day < days; day++ {
		for hour := 0; hour < 24; hour++ {
			ts := baseDate.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
			// Rough diurnal temperature curve around 22C.
			diurnal := 6 * sinDay(hour)
			out = append(out, domain.EnvironmentReading{
				Timestamp:          ts,
				StationID:          stationID,
				Temperature:        22 + diurnal + rng.Float64()*2,
				Humidity:           55 + rng.Float64()*30,
				BarometricPressure: 1008 + rng.Float64()*12,
				SoundPressureLevel: 35 + rng.Float64()*20,
				AQI:                10 + rng.Float64()*40,
			})
		}
	}
	return out
}

func sinDay(hour int) float64 {
	// Peak mid-afternoon, trough before dawn. Cheap piecewise stand-in for
	// a sine curve; precision is irrelevant for mock data.
	dist := hour - 15
	if dist < 0 {
		dist = -dist
	}
	return 1 - float64(dist)/7.5
}

func genProbabilities(rng *rand.Rand) []domain.SpeciesProbability {
	var out []domain.SpeciesProbability
	for _, sp := range mockSpecies {
		peak := rng.Intn(53)
		for week := 0; week <= 52; week++ {
			dist := week - peak
			if dist < 0 {
				dist = -dist
			}
			if dist > 26 {
				dist = 53 - dist
			}
			out = append(out, domain.SpeciesProbability{
				SpeciesID:   sp.ID,
				CommonName:  sp.CommonName,
				Week:        week,
				Probability: max(0, 1-float64(dist)/13),
			})
		}
	}
	return out
}
