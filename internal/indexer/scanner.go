// Package indexer walks a directory of recorded audio, parses each file
// name into a partial record, and orchestrates the enrichment pipeline
// that turns it into a fully catalogued, searchable Recording.
package indexer

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/trunk-recorder/rtx-index/internal/metrics"
	"github.com/trunk-recorder/rtx-index/internal/parser"
)

// Scanner walks a root directory and emits a PartialRecord for every file
// whose name matches a known grammar. It is the pipeline's sole producer;
// parse errors are logged and skipped rather than raised, except for
// NotAudio, which is skipped silently — a directory of mixed file types is
// the common case, not an error.
type Scanner struct {
	root     string
	eventID  string
	location *time.Location
	log      zerolog.Logger
}

// NewScanner returns a scanner rooted at root, attributing every parsed
// record to eventID and interpreting filename timestamps in loc.
func NewScanner(root, eventID string, loc *time.Location, log zerolog.Logger) *Scanner {
	return &Scanner{root: root, eventID: eventID, location: loc, log: log}
}

// Scan walks the tree and sends a PartialRecord on out for every file that
// parses successfully. It closes out when the walk completes or ctx is
// cancelled — the closable channel stands in for the scanComplete flag.
func (s *Scanner) Scan(ctx context.Context, out chan<- parser.PartialRecord) error {
	defer close(out)

	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil
		}
		if d.IsDir() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, parseErr := parser.Parse(d.Name(), s.eventID, s.location)
		if parseErr != nil {
			s.recordOutcome(parseErr)
			return nil
		}
		rec.FileName = path

		metrics.FilesScannedTotal.WithLabelValues("parsed").Inc()

		select {
		case out <- *rec:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

func (s *Scanner) recordOutcome(err error) {
	parseErr, ok := err.(*parser.ParseError)
	if !ok {
		s.log.Warn().Err(err).Msg("unexpected scan error")
		return
	}

	switch parseErr.Kind {
	case parser.NotAudio:
		metrics.FilesScannedTotal.WithLabelValues("not_audio").Inc()
	case parser.UnknownFormat:
		metrics.FilesScannedTotal.WithLabelValues("unknown_format").Inc()
		s.log.Debug().Str("file", parseErr.FileName).Msg("unknown filename format")
	case parser.MalformedFilename:
		metrics.FilesScannedTotal.WithLabelValues("malformed_filename").Inc()
		s.log.Warn().Str("file", parseErr.FileName).Msg("malformed filename")
	}
}
