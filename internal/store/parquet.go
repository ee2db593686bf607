// Package store provides storage backends for the local cache: a
// parquet-file backend for production and an in-memory backend for tests
// and tooling. Both satisfy datastore.Backend.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/fernwhistle/birdweather-cache/internal/domain"
)

// File names inside the data directory. One columnar file per dataset plus
// a JSON sidecar holding the sync state.
const (
	detectionsFile    = "detections.parquet"
	environmentFile   = "environment.parquet"
	speciesFile       = "species.parquet"
	probabilitiesFile = "probabilities.parquet"
	stateFile         = "state.json"
)

// Parquet persists each dataset as a parquet file under a data directory.
// Every write replaces the whole file via a temp-file-then-rename, so a
// crash mid-write never corrupts the previous copy.
type Parquet struct {
	dir string
}

// NewParquet creates the data directory if needed and returns the backend.
func NewParquet(dir string) (*Parquet, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StorageError{Op: "write", Path: dir, Err: err}
	}
	return &Parquet{dir: dir}, nil
}

// Dir returns the backing data directory.
func (p *Parquet) Dir() string { return p.dir }

func (p *Parquet) ReadDetections() ([]domain.Detection, error) {
	rows, err := readParquet[detectionRow](p.path(detectionsFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Detection, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (p *Parquet) WriteDetections(records []domain.Detection) error {
	rows := make([]detectionRow, len(records))
	for i, d := range records {
		rows[i] = newDetectionRow(d)
	}
	return writeParquet(p.path(detectionsFile), rows)
}

func (p *Parquet) ReadEnvironment() ([]domain.EnvironmentReading, error) {
	rows, err := readParquet[environmentRow](p.path(environmentFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.EnvironmentReading, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (p *Parquet) WriteEnvironment(records []domain.EnvironmentReading) error {
	rows := make([]environmentRow, len(records))
	for i, r := range records {
		rows[i] = newEnvironmentRow(r)
	}
	return writeParquet(p.path(environmentFile), rows)
}

func (p *Parquet) ReadSpecies() ([]domain.Species, error) {
	rows, err := readParquet[speciesRow](p.path(speciesFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Species, len(rows))
	for i, r := range rows {
		out[i] = domain.Species(r)
	}
	return out, nil
}

func (p *Parquet) WriteSpecies(records []domain.Species) error {
	rows := make([]speciesRow, len(records))
	for i, s := range records {
		rows[i] = speciesRow(s)
	}
	return writeParquet(p.path(speciesFile), rows)
}

func (p *Parquet) ReadProbabilities() ([]domain.SpeciesProbability, error) {
	rows, err := readParquet[probabilityRow](p.path(probabilitiesFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SpeciesProbability, len(rows))
	for i, r := range rows {
		out[i] = domain.SpeciesProbability(r)
	}
	return out, nil
}

func (p *Parquet) WriteProbabilities(records []domain.SpeciesProbability) error {
	rows := make([]probabilityRow, len(records))
	for i, pr := range records {
		rows[i] = probabilityRow(pr)
	}
	return writeParquet(p.path(probabilitiesFile), rows)
}

func (p *Parquet) ReadState() (domain.SyncState, error) {
	path := p.path(stateFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.SyncState{}, nil
	}
	if err != nil {
		return domain.SyncState{}, &domain.StorageError{Op: "read", Path: path, Err: err}
	}
	var state domain.SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.SyncState{}, &domain.StorageError{Op: "read", Path: path, Err: err}
	}
	return state, nil
}

func (p *Parquet) WriteState(state domain.SyncState) error {
	path := p.path(stateFile)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return atomicWrite(path, func(tmp string) error {
		return os.WriteFile(tmp, append(data, '\n'), 0o644)
	})
}

func (p *Parquet) path(name string) string {
	return filepath.Join(p.dir, name)
}

// readParquet loads a whole parquet file, treating a missing file as an
// empty table (the dataset has simply never been written).
func readParquet[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Path: path, Err: err}
	}
	return rows, nil
}

func writeParquet[T any](path string, rows []T) error {
	return atomicWrite(path, func(tmp string) error {
		return parquet.WriteFile(tmp, rows)
	})
}

// atomicWrite writes to a temp file next to path and renames it into place.
// The rename is atomic on POSIX filesystems, so readers see either the old
// or the new file, never a partial one.
func atomicWrite(path string, write func(tmp string) error) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}
