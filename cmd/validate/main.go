// Command validate checks a local data directory against the cache
// invariants: unique identity keys, watermarks covering only persisted
// records, and sane reference tables. It exits non-zero when any invariant
// is violated, which makes it usable as a post-sync sanity step.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fernwhistle/birdweather-cache/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", "data", "data directory to validate")
	flag.Parse()

	problems, err := validate(*dataDir)
	if err != nil {
		log.Fatal(err)
	}
	if len(problems) == 0 {
		fmt.Println("ok")
		return
	}
	for _, p := range problems {
		fmt.Fprintln(os.Stderr, "violation:", p)
	}
	os.Exit(1)
}

func validate(dataDir string) ([]string, error) {
	backend, err := store.NewParquet(dataDir)
	if err != nil {
		return nil, err
	}

	detections, err := backend.ReadDetections()
	if err != nil {
		return nil, err
	}
	environment, err := backend.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	species, err := backend.ReadSpecies()
	if err != nil {
		return nil, err
	}
	probabilities, err := backend.ReadProbabilities()
	if err != nil {
		return nil, err
	}
	state, err := backend.ReadState()
	if err != nil {
		return nil, err
	}

	var problems []string

	// Identity keys must be unique within each fact table.
	seen := make(map[string]struct{}, len(detections))
	var maxDetection time.Time
	for _, d := range detections {
		k := d.Key()
		if _, dup := seen[k]; dup {
			problems = append(problems, fmt.Sprintf("duplicate detection key %s", k))
		}
		seen[k] = struct{}{}
		if d.Timestamp.After(maxDetection) {
			maxDetection = d.Timestamp
		}
	}

	seenEnv := make(map[string]struct{}, len(environment))
	var maxReading time.Time
	for _, r := range environment {
		k := r.Key()
		if _, dup := seenEnv[k]; dup {
			problems = append(problems, fmt.Sprintf("duplicate environment key %s", k))
		}
		seenEnv[k] = struct{}{}
		if r.Timestamp.After(maxReading) {
			maxReading = r.Timestamp
		}
	}

	// A watermark must never claim completeness past the persisted data.
	if state.DetectionsWatermark.After(maxDetection) {
		problems = append(problems, fmt.Sprintf(
			"detections watermark %s is past the latest persisted record %s",
			state.DetectionsWatermark.Format(time.RFC3339), maxDetection.Format(time.RFC3339)))
	}
	if state.EnvironmentWatermark.After(maxReading) {
		problems = append(problems, fmt.Sprintf(
			"environment watermark %s is past the latest persisted record %s",
			state.EnvironmentWatermark.Format(time.RFC3339), maxReading.Format(time.RFC3339)))
	}
	if len(detections) > 0 && state.DetectionsWatermark.IsZero() {
		problems = append(problems, "detections present but watermark is unset")
	}
	if len(environment) > 0 && state.EnvironmentWatermark.IsZero() {
		problems = append(problems, "environment readings present but watermark is unset")
	}

	// Every species referenced by a detection should have cached metadata.
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
	for id := range missing {
		problems = append(problems, fmt.Sprintf("species %s referenced by detections but missing from metadata", id))
	}

	for _, p := range probabilities {
		if p.Week < 0 || p.Week > 52 {
			problems = append(problems, fmt.Sprintf("species %s probability has week %d outside [0, 52]", p.SpeciesID, p.Week))
		}
	}

	return problems, nil
}
