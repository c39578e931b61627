package searchindex

import (
	"context"
	"fmt"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
)

// Rebuild clears the index and re-adds every recording catalogued across
// every event, the full re-add the freshness policy falls back to when
// the persisted index is older than the catalog (or there is no catalog
// file to compare against at all).
func Rebuild(ctx context.Context, idx *Index, store *catalog.DB) error {
	if err := idx.Clear(); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}

	events, err := store.Events(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	var docs []Document
	for _, e := range events {
		recs, err := store.Transmissions(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("list transmissions for event %s: %w", e.ID, err)
		}
		for _, r := range recs {
			text := ""
			if r.Transcription != nil {
				text = *r.Transcription
			}
			key := r.Key()
			docs = append(docs, Document{
				EventID:       r.EventID,
				System:        r.System,
				Channel:       r.Channel,
				Station:       r.Station,
				StartTimeUnix: key.StartTimeUnix,
				Transcription: text,
			})
		}
	}

	if len(docs) == 0 {
		return nil
	}
	return idx.Add(docs)
}
