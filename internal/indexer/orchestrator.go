package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/trunk-recorder/rtx-index/internal/capability"
	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/metrics"
	"github.com/trunk-recorder/rtx-index/internal/parser"
	"github.com/trunk-recorder/rtx-index/internal/queue"
	"github.com/trunk-recorder/rtx-index/internal/transcribe"
	"golang.org/x/time/rate"
)

// Capabilities bundles the enrichment collaborators the orchestrator
// drives. Constructed once at startup and passed by reference as explicit
// dependency injection rather than lazy singletons. A nil field disables
// that capability even if its corresponding Options flag is set.
type Capabilities struct {
	Duration    *capability.DurationProbe
	Hasher      *capability.ContentHasher
	Transcriber transcribe.Provider
}

// Options configures a single run of IndexIntoStore.
type Options struct {
	EventID   string
	EventName string

	SourceDir    string
	ExistingOnly bool // re-enrich rows already in the catalog instead of scanning SourceDir
	Location     *time.Location

	ComputeDuration      bool
	ComputeChecksum      bool
	ComputeTranscription bool

	MaxTasks    int
	QueueSize   int
	RateLimiter *rate.Limiter
}

// Orchestrator is the coordinating task: it is the catalog's only writer,
// upserting parsed records and enqueuing their enrichment tasks onto a
// Parallel Runner.
type Orchestrator struct {
	store *catalog.DB
	caps  Capabilities
	log   zerolog.Logger
}

// New returns an orchestrator backed by store, using caps for enrichment.
func New(store *catalog.DB, caps Capabilities, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: store, caps: caps, log: log}
}

// IndexIntoStore runs one full pass: it ensures the event exists, then
// either walks opts.SourceDir (the default) or re-visits every row
// already catalogued for the event (opts.ExistingOnly), upserting and
// enriching as it goes. It returns once the scan and every enrichment
// task it enqueued have completed.
func (o *Orchestrator) IndexIntoStore(ctx context.Context, opts Options) error {
	if err := o.store.CreateEventOrIgnore(ctx, opts.EventID, opts.EventName); err != nil {
		return fmt.Errorf("bootstrap event: %w", err)
	}

	runner := queue.NewRunner(opts.MaxTasks, opts.QueueSize, opts.RateLimiter, o.log)

	var scanErr error
	if opts.ExistingOnly {
		scanErr = o.reenrichExisting(ctx, runner, opts)
	} else {
		scanErr = o.scanAndEnsure(ctx, runner, opts)
	}

	runner.Close()

	if scanErr != nil {
		return fmt.Errorf("scan: %w", scanErr)
	}
	return nil
}

func (o *Orchestrator) scanAndEnsure(ctx context.Context, runner *queue.Runner, opts Options) error {
	records := make(chan parser.PartialRecord, opts.QueueSize)
	scanner := NewScanner(opts.SourceDir, opts.EventID, opts.Location, o.log)

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- scanner.Scan(ctx, records)
	}()

	for rec := range records {
		o.ensure(ctx, runner, opts, rec)
	}

	return <-scanDone
}

func (o *Orchestrator) reenrichExisting(ctx context.Context, runner *queue.Runner, opts Options) error {
	existing, err := o.store.Transmissions(ctx, opts.EventID)
	if err != nil {
		return fmt.Errorf("list transmissions: %w", err)
	}
	for _, rec := range existing {
		o.enqueueEnrichment(runner, opts, rec)
	}
	return nil
}

// ensure upserts a single parsed record: a new composite key is inserted
// and its enrichment tasks are enqueued; a key that already exists is
// either a benign re-scan (same station and path — only missing
// attributes are enqueued) or a conflict (different station or path —
// logged, counted in the metric and the row's conflict count, and every
// other field of the row is left untouched).
func (o *Orchestrator) ensure(ctx context.Context, runner *queue.Runner, opts Options, rec parser.PartialRecord) {
	key := catalog.NewCompositeKey(opts.EventID, rec.System, rec.Channel, rec.StartTime)

	existing, ok, err := o.store.Transmission(ctx, key)
	if err != nil {
		o.log.Error().Err(err).Str("key", key.String()).Msg("catalog lookup failed")
		return
	}

	if !ok {
		created := catalog.Recording{
			EventID:   opts.EventID,
			System:    rec.System,
			Station:   rec.Station,
			Channel:   rec.Channel,
			StartTime: rec.StartTime,
			FileName:  rec.FileName,
		}
		if err := o.store.CreateTransmission(ctx, created); err != nil {
			o.log.Error().Err(err).Str("key", key.String()).Msg("insert transmission failed")
			return
		}
		o.enqueueEnrichment(runner, opts, created)
		return
	}

	if existing.Station != rec.Station {
		metrics.ConflictsTotal.WithLabelValues("station").Inc()
		_ = o.store.IncrementConflictCount(ctx, key)
		o.log.Warn().Str("key", key.String()).
			Str("existing_station", existing.Station).Str("new_station", rec.Station).
			Msg("station conflict on re-scan, row left unchanged")
		return
	}
	if existing.FileName != rec.FileName {
		metrics.ConflictsTotal.WithLabelValues("path").Inc()
		_ = o.store.IncrementConflictCount(ctx, key)
		o.log.Warn().Str("key", key.String()).
			Str("existing_path", existing.FileName).Str("new_path", rec.FileName).
			Msg("path conflict on re-scan, row left unchanged")
		return
	}

	// Same station and path: an idempotent re-scan. Only attributes still
	// missing get enqueued, so a fully enriched row is a no-op.
	o.enqueueEnrichment(runner, opts, *existing)
}

func (o *Orchestrator) enqueueEnrichment(runner *queue.Runner, opts Options, rec catalog.Recording) {
	key := rec.Key()

	if opts.ComputeDuration && rec.Duration == nil && o.caps.Duration != nil {
		runner.Submit(o.durationTask(key, rec.FileName))
	}
	if opts.ComputeChecksum && rec.SHA256 == nil && o.caps.Hasher != nil {
		runner.Submit(o.hashTask(key, rec.FileName))
	}
	if opts.ComputeTranscription && rec.Transcription == nil && o.caps.Transcriber != nil {
		runner.Submit(o.transcriptionTask(key, rec.FileName))
	}
}

// A duration or hash task failure is logged and the attribute is left NULL
// for the next run; a transcription failure is stored as ErrorSentinel
// text instead. No task failure fails the enclosing Recording or the run.

func (o *Orchestrator) durationTask(key catalog.CompositeKey, path string) queue.Task {
	return func(ctx context.Context) error {
		start := time.Now()
		d, err := o.caps.Duration.Probe(ctx, path)
		metrics.TaskDurationSeconds.WithLabelValues("duration").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TaskOutcomesTotal.WithLabelValues("duration", "failure").Inc()
			o.log.Warn().Err(err).Str("key", key.String()).Msg("duration probe failed")
			return nil
		}
		metrics.TaskOutcomesTotal.WithLabelValues("duration", "success").Inc()
		if err := o.store.SetTransmissionDuration(ctx, key, d); err != nil {
			o.log.Error().Err(err).Str("key", key.String()).Msg("store duration failed")
		}
		return nil
	}
}

func (o *Orchestrator) hashTask(key catalog.CompositeKey, path string) queue.Task {
	return func(ctx context.Context) error {
		start := time.Now()
		sum, err := o.caps.Hasher.Hash(path)
		metrics.TaskDurationSeconds.WithLabelValues("hash").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TaskOutcomesTotal.WithLabelValues("hash", "failure").Inc()
			o.log.Warn().Err(err).Str("key", key.String()).Msg("content hash failed")
			return nil
		}
		metrics.TaskOutcomesTotal.WithLabelValues("hash", "success").Inc()
		if err := o.store.SetTransmissionSHA256(ctx, key, sum); err != nil {
			o.log.Error().Err(err).Str("key", key.String()).Msg("store hash failed")
		}
		return nil
	}
}

func (o *Orchestrator) transcriptionTask(key catalog.CompositeKey, path string) queue.Task {
	return func(ctx context.Context) error {
		start := time.Now()
		text := transcribe.TranscribeOrSentinel(ctx, o.caps.Transcriber, path)
		metrics.TaskDurationSeconds.WithLabelValues("transcription").Observe(time.Since(start).Seconds())

		outcome := "success"
		if strings.HasPrefix(text, transcribe.ErrorSentinel) {
			outcome = "failure"
		}
		metrics.TaskOutcomesTotal.WithLabelValues("transcription", outcome).Inc()

		if err := o.store.SetTransmissionTranscription(ctx, key, text); err != nil {
			o.log.Error().Err(err).Str("key", key.String()).Msg("store transcription failed")
		}
		return nil
	}
}
