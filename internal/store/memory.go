package store

import (
	"slices"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

// Memory is an in-memory backend for tests and tooling. Reads return copies
// so callers cannot mutate stored data in place.
type Memory struct {
	detections    []domain.Detection
	environment   []domain.EnvironmentReading
	species       []domain.Species
	probabilities []domain.SpeciesProbability
	state         domain.SyncState
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadDetections() ([]domain.Detection, error) {
	return slices.Clone(m.detections), nil
}

func (m *Memory) WriteDetections(records []domain.Detection) error {
	m.detections = slices.Clone(records)
	return nil
}

func (m *Memory) ReadEnvironment() ([]domain.EnvironmentReading, error) {
	return slices.Clone(m.environment), nil
}

func (m *Memory) WriteEnvironment(records []domain.EnvironmentReading) error {
	m.environment = slices.Clone(records)
	return nil
}

func (m *Memory) ReadSpecies() ([]domain.Species, error) {
	return slices.Clone(m.species), nil
}

func (m *Memory) WriteSpecies(records []domain.Species) error {
	m.species = slices.Clone(records)
	return nil
}

func (m *Memory) ReadProbabilities() ([]domain.SpeciesProbability, error) {
	return slices.Clone(m.probabilities), nil
}

func (m *Memory) WriteProbabilities(records []domain.SpeciesProbability) error {
	m.probabilities = slices.Clone(records)
	return nil
}

func (m *Memory) ReadState() (domain.SyncState, error) {
	return m.state, nil
}

func (m *Memory) WriteState(state domain.SyncState) error {
	m.state = state
	return nil
}
