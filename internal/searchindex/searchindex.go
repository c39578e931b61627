// Package searchindex maps free-text queries over transcriptions to the
// composite keys of the recordings they came from. It is the secondary,
// disposable store alongside the catalog: it can always be rebuilt from
// catalog contents, and the freshness policy decides when that is worth
// doing.
package searchindex

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/metrics"
)

// Document is the search-side projection of a Recording: just enough to
// locate it again plus the text to search over.
type Document struct {
	EventID       string
	System        string
	Channel       string
	Station       string
	StartTimeUnix float64
	Transcription string
}

// Index is a handle to the full-text store, in memory or on disk.
type Index struct {
	bleveIdx bleve.Index
	log      zerolog.Logger
}

// Connect opens the index at location, or creates it if absent. An empty
// location opens a private in-memory index, used for tests and short-
// lived runs that have no catalog file to compare mtimes against.
//
// Freshness policy: when location names an existing directory whose
// modification time is newer than catalogPath's, the index is reopened
// as-is. Otherwise it is rebuilt from scratch — the caller is expected to
// call Rebuild immediately after Connect reports stale. An empty
// catalogPath (an in-memory catalog) always rebuilds.
func Connect(location, catalogPath string, log zerolog.Logger) (idx *Index, stale bool, err error) {
	if location == "" {
		mem, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, false, fmt.Errorf("create in-memory search index: %w", err)
		}
		metrics.SearchIndexStale.Set(1)
		return &Index{bleveIdx: mem, log: log}, true, nil
	}

	info, err := os.Stat(location)
	if os.IsNotExist(err) {
		created, err := bleve.New(location, buildMapping())
		if err != nil {
			return nil, false, fmt.Errorf("create search index at %s: %w", location, err)
		}
		metrics.SearchIndexStale.Set(1)
		return &Index{bleveIdx: created, log: log}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat search index location: %w", err)
	}

	stale = catalogPath == "" || isStale(info.ModTime(), catalogPath)

	opened, err := bleve.Open(location)
	if err != nil {
		return nil, false, fmt.Errorf("open search index at %s: %w", location, err)
	}

	if stale {
		metrics.SearchIndexStale.Set(1)
	} else {
		metrics.SearchIndexStale.Set(0)
	}
	return &Index{bleveIdx: opened, log: log}, stale, nil
}

func isStale(indexModTime time.Time, catalogPath string) bool {
	catInfo, err := os.Stat(catalogPath)
	if err != nil {
		// Catalog file missing or inaccessible: treat as stale so the
		// caller rebuilds rather than trusting an index we can't compare.
		return true
	}
	return !indexModTime.After(catInfo.ModTime())
}

// buildMapping indexes only the Transcription field. EventID, System,
// Channel, Station and StartTimeUnix are stored (so a hit can still report
// them via Search's req.Fields) but not indexed and excluded from the
// aggregated _all field, so an unscoped query term can only match
// transcription text, not a system, station, or channel name.
func buildMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	transcription := bleve.NewTextFieldMapping()
	transcription.Store = true
	transcription.Index = true
	transcription.IncludeInAll = true
	doc.AddFieldMappingsAt("Transcription", transcription)

	storedOnlyText := bleve.NewTextFieldMapping()
	storedOnlyText.Store = true
	storedOnlyText.Index = false
	storedOnlyText.IncludeInAll = false
	doc.AddFieldMappingsAt("EventID", storedOnlyText)
	doc.AddFieldMappingsAt("System", storedOnlyText)
	doc.AddFieldMappingsAt("Channel", storedOnlyText)
	doc.AddFieldMappingsAt("Station", storedOnlyText)

	storedOnlyNumeric := bleve.NewNumericFieldMapping()
	storedOnlyNumeric.Store = true
	storedOnlyNumeric.Index = false
	storedOnlyNumeric.IncludeInAll = false
	doc.AddFieldMappingsAt("StartTimeUnix", storedOnlyNumeric)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

func keyOf(d Document) string {
	return d.EventID + "/" + d.System + "/" + d.Channel + "/" + strconv.FormatFloat(d.StartTimeUnix, 'f', -1, 64)
}

// Add upserts documents into the index.
func (idx *Index) Add(docs []Document) error {
	batch := idx.bleveIdx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(keyOf(d), d); err != nil {
			return fmt.Errorf("index document: %w", err)
		}
	}
	return idx.bleveIdx.Batch(batch)
}

// Clear removes every document from the index without closing it.
func (idx *Index) Clear() error {
	ids, err := idx.allDocIDs()
	if err != nil {
		return err
	}
	batch := idx.bleveIdx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return idx.bleveIdx.Batch(batch)
}

func (idx *Index) allDocIDs() ([]string, error) {
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Size = 1_000_000
	result, err := idx.bleveIdx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("match-all search: %w", err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Search parses queryText as a boolean/phrase query against the
// transcription field and returns matching composite keys in score order,
// capped at limit (0 means no cap).
func (idx *Index) Search(queryText string, limit int) ([]catalog.CompositeKey, error) {
	q := query.NewQueryStringQuery(queryText)
	req := bleve.NewSearchRequest(q)
	req.Fields = []string{"EventID", "System", "Channel", "StartTimeUnix"}
	if limit > 0 {
		req.Size = limit
	} else {
		req.Size = 10_000
	}

	result, err := idx.bleveIdx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	keys := make([]catalog.CompositeKey, 0, len(result.Hits))
	for _, hit := range result.Hits {
		key, err := keyFromFields(hit.Fields)
		if err != nil {
			idx.log.Warn().Err(err).Str("doc_id", hit.ID).Msg("skipping unparsable search hit")
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func keyFromFields(fields map[string]interface{}) (catalog.CompositeKey, error) {
	eventID, _ := fields["EventID"].(string)
	system, _ := fields["System"].(string)
	channel, _ := fields["Channel"].(string)
	startUnix, ok := fields["StartTimeUnix"].(float64)
	if !ok {
		return catalog.CompositeKey{}, fmt.Errorf("missing StartTimeUnix field")
	}
	return catalog.CompositeKey{
		EventID:       eventID,
		System:        system,
		Channel:       channel,
		StartTimeUnix: startUnix,
	}, nil
}

// Close releases the index's file handles.
func (idx *Index) Close() error {
	return idx.bleveIdx.Close()
}
