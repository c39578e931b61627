// Package readapi exposes the catalog and search index to downstream
// consumers (a CLI, a TUI, a web backend) as a single in-process
// interface. No transport — HTTP, JSON, or otherwise — lives here; that
// is an external collaborator's job.
package readapi

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/searchindex"
)

// API is the read-only surface over an indexed event catalog.
type API interface {
	Events(ctx context.Context) ([]catalog.Event, error)
	Recordings(ctx context.Context, eventID string, start, end *time.Time) ([]catalog.Recording, error)
	Search(ctx context.Context, query string, limit int) ([]catalog.CompositeKey, error)
	Recording(ctx context.Context, key catalog.CompositeKey) (*catalog.Recording, error)
	AudioBytes(ctx context.Context, key catalog.CompositeKey) ([]byte, error)
}

type api struct {
	store *catalog.DB
	index *searchindex.Index
}

// New returns an API backed by store for catalog reads and index for
// free-text search.
func New(store *catalog.DB, index *searchindex.Index) API {
	return &api{store: store, index: index}
}

func (a *api) Events(ctx context.Context) ([]catalog.Event, error) {
	return a.store.Events(ctx)
}

// Recordings lists every recording catalogued for eventID whose
// StartTime falls in [start, end] (either bound may be nil, meaning
// unbounded on that side).
func (a *api) Recordings(ctx context.Context, eventID string, start, end *time.Time) ([]catalog.Recording, error) {
	all, err := a.store.Transmissions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	filtered := make([]catalog.Recording, 0, len(all))
	for _, rec := range all {
		if isInRange(rec.StartTime, start, end) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// isInRange filters on a record's start time:
// start is nil or record.startTime >= start, AND
// end is nil or record.startTime <= end.
func isInRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func (a *api) Search(ctx context.Context, query string, limit int) ([]catalog.CompositeKey, error) {
	return a.index.Search(query, limit)
}

func (a *api) Recording(ctx context.Context, key catalog.CompositeKey) (*catalog.Recording, error) {
	rec, ok, err := a.store.Transmission(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &catalog.NotFoundError{Key: key.String()}
	}
	return rec, nil
}

// AudioBytes reads the recording's underlying audio file in full. A large
// deployment would stream this; the in-process surface returns the whole
// byte slice since the concrete transport (and any chunking it wants) is
// out of scope here.
func (a *api) AudioBytes(ctx context.Context, key catalog.CompositeKey) ([]byte, error) {
	rec, err := a.Recording(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(rec.FileName)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	return data, nil
}
