package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedCursor indicates the API signalled more pages but returned a
// missing or non-advancing continuation cursor. The sync stops paging and
// surfaces this through a SyncError rather than looping.
var ErrMalformedCursor = errors.New("malformed pagination cursor")

// FetchError is a network, API, or decode failure while talking to the
// remote BirdWeather service.
type FetchError struct {
	Op  string // e.g. "detections page", "species lookup"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("birdweather fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SyncError wraps the failure that aborted a dataset sync. Pages persisted
// before the failure stay committed; the scheduler retries on its next run.
type SyncError struct {
	Dataset Dataset
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Dataset, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// StorageError is a local read or write failure. Fatal to the current
// invocation; previously persisted data is never left half-written because
// table replacements go through a temp-file-then-rename.
type StorageError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
