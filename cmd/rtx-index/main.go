// Command rtx-index runs one indexing pass (or, with RTX_WATCH=true, a
// continuous one) over a directory of recorded transmissions, parsing
// filenames, enriching them with duration/hash/transcription, and
// keeping the search index up to date.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/trunk-recorder/rtx-index/internal/capability"
	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/config"
	"github.com/trunk-recorder/rtx-index/internal/indexer"
	"github.com/trunk-recorder/rtx-index/internal/queue"
	"github.com/trunk-recorder/rtx-index/internal/searchindex"
	"github.com/trunk-recorder/rtx-index/internal/transcribe"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.SourceDir, "source-dir", "", "Directory to scan (overrides RTX_SOURCE_DIR)")
	flag.StringVar(&overrides.StoreFile, "store-file", "", "SQLite catalog path (overrides RTX_STORE_FILE)")
	flag.StringVar(&overrides.EventID, "event-id", "", "Event id to index into (overrides RTX_EVENT_ID)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides RTX_LOG_LEVEL)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("rtx-index %s (commit=%s)\n", version, commit)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("commit", commit).Str("event_id", cfg.EventID).Msg("rtx-index starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogLog := log.With().Str("component", "catalog").Logger()
	store, err := catalog.Connect(cfg.StoreFile, catalogLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to catalog")
	}
	defer store.Close()

	if err := store.UpgradeSchema(ctx, 0); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	caps := buildCapabilities(cfg, log)

	indexLog := log.With().Str("component", "indexer").Logger()
	orch := indexer.New(store, caps, indexLog)

	limiter := queue.NewRateLimiter(int(cfg.RateLimit), cfg.RateLimitWindow)

	opts := indexer.Options{
		EventID:              cfg.EventID,
		EventName:            cfg.EventName,
		SourceDir:            cfg.SourceDir,
		ExistingOnly:         cfg.ExistingOnly,
		Location:             cfg.Location(),
		ComputeDuration:      cfg.ComputeDuration,
		ComputeChecksum:      cfg.ComputeChecksum,
		ComputeTranscription: cfg.ComputeTranscription,
		MaxTasks:             cfg.MaxTasks,
		QueueSize:            cfg.MaxTasks * 4,
		RateLimiter:          limiter,
	}

	if err := orch.IndexIntoStore(ctx, opts); err != nil {
		log.Error().Err(err).Msg("indexing pass failed")
	} else {
		log.Info().Dur("elapsed", time.Since(startTime)).Msg("indexing pass complete")
	}

	searchLog := log.With().Str("component", "searchindex").Logger()
	idx, stale, err := searchindex.Connect(cfg.SearchIndexFile, store.Path(), searchLog)
	if err != nil {
		log.Error().Err(err).Msg("failed to open search index")
	} else {
		defer idx.Close()
		if stale {
			searchLog.Info().Msg("search index stale, rebuilding from catalog")
			if err := searchindex.Rebuild(ctx, idx, store); err != nil {
				log.Error().Err(err).Msg("search index rebuild failed")
			}
		}
	}

	if cfg.Watch {
		log.Info().Str("source_dir", cfg.SourceDir).Msg("entering watch mode")
		if err := orch.Watch(ctx, opts); err != nil {
			log.Error().Err(err).Msg("watch mode stopped with error")
		}
	}

	log.Info().Msg("rtx-index stopped")
}

func buildCapabilities(cfg *config.Config, log zerolog.Logger) indexer.Capabilities {
	caps := indexer.Capabilities{
		Duration: capability.NewDurationProbe(cfg.FFProbePath),
		Hasher:   capability.NewContentHasher(),
	}

	switch cfg.TranscribeProvider {
	case "http":
		caps.Transcriber = transcribe.NewHTTPProvider(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperLanguage, cfg.WhisperTimeout)
		log.Info().Str("provider", "http").Str("url", cfg.WhisperURL).Msg("transcription enabled")
	case "local":
		caps.Transcriber = transcribe.NewLocalProvider(cfg.LocalWhisperBinary)
		log.Info().Str("provider", "local").Str("binary", cfg.LocalWhisperBinary).Msg("transcription enabled")
	case "none":
		log.Info().Msg("transcription disabled")
	}

	return caps
}
