// Package config loads the core engine's own operational settings: where the
// catalog and search index live, how many enrichment tasks run concurrently,
// and which enrichment steps are enabled. This is distinct from any
// end-user-facing TOML configuration surface (Store.Type, Audio.Event.<id>.*)
// owned by an outer CLI frontend; the core only needs enough of its own
// wiring to run standalone and in tests.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings the core engine needs to run a single indexing
// pass or serve read-only queries.
type Config struct {
	// EventID and EventName bootstrap the Event row an indexing run belongs to.
	EventID   string `env:"RTX_EVENT_ID"`
	EventName string `env:"RTX_EVENT_NAME"`

	// SourceDir is the root directory the scanner walks.
	SourceDir string `env:"RTX_SOURCE_DIR"`

	// StoreFile is the SQLite catalog path. Empty selects an in-memory database.
	StoreFile string `env:"RTX_STORE_FILE" envDefault:"./rtx.sqlite"`

	// SearchIndexFile is the Bleve index directory path. Empty selects an
	// in-memory index, rebuilt fresh on every run.
	SearchIndexFile string `env:"RTX_SEARCH_INDEX_FILE" envDefault:"./rtx.bleve"`

	// Zone is the local timezone label/offset filenames are parsed in, e.g.
	// "PDT" at UTC-07:00.
	ZoneName   string `env:"RTX_ZONE_NAME" envDefault:"PDT"`
	ZoneOffset int    `env:"RTX_ZONE_OFFSET_SECONDS" envDefault:"-25200"`

	// MaxTasks bounds concurrent in-flight enrichment tasks.
	MaxTasks int `env:"RTX_MAX_TASKS" envDefault:"8"`

	// RateLimit and RateLimitWindow bound the enrichment task release rate;
	// zero RateLimit disables rate limiting.
	RateLimit       float64       `env:"RTX_RATE_LIMIT" envDefault:"0"`
	RateLimitWindow time.Duration `env:"RTX_RATE_LIMIT_WINDOW" envDefault:"1s"`

	// Enrichment toggles.
	ComputeChecksum      bool `env:"RTX_COMPUTE_CHECKSUM" envDefault:"true"`
	ComputeDuration      bool `env:"RTX_COMPUTE_DURATION" envDefault:"true"`
	ComputeTranscription bool `env:"RTX_COMPUTE_TRANSCRIPTION" envDefault:"false"`
	ExistingOnly         bool `env:"RTX_EXISTING_ONLY" envDefault:"false"`

	// Watch mode: keep scanning SourceDir for new files after the initial walk.
	Watch bool `env:"RTX_WATCH" envDefault:"false"`

	// Duration probe binary (ffprobe-compatible).
	FFProbePath string `env:"RTX_FFPROBE_PATH" envDefault:"ffprobe"`

	// Transcription provider: "http", "local", or "none".
	TranscribeProvider string        `env:"RTX_TRANSCRIBE_PROVIDER" envDefault:"none"`
	WhisperURL         string        `env:"RTX_WHISPER_URL"`
	WhisperModel       string        `env:"RTX_WHISPER_MODEL"`
	WhisperTimeout     time.Duration `env:"RTX_WHISPER_TIMEOUT" envDefault:"30s"`
	WhisperLanguage    string        `env:"RTX_WHISPER_LANGUAGE" envDefault:"en"`
	LocalWhisperBinary string        `env:"RTX_LOCAL_WHISPER_BINARY" envDefault:"whisper"`

	LogLevel string `env:"RTX_LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	SourceDir string
	StoreFile string
	EventID   string
	LogLevel  string
}

// Load reads configuration from a .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.SourceDir != "" {
		cfg.SourceDir = overrides.SourceDir
	}
	if overrides.StoreFile != "" {
		cfg.StoreFile = overrides.StoreFile
	}
	if overrides.EventID != "" {
		cfg.EventID = overrides.EventID
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, nil
}

// Validate checks that the config has enough to run an indexing pass.
func (c *Config) Validate() error {
	if c.SourceDir == "" && !c.ExistingOnly {
		return fmt.Errorf("RTX_SOURCE_DIR must be set unless RTX_EXISTING_ONLY=true")
	}
	if c.EventID == "" {
		return fmt.Errorf("RTX_EVENT_ID must be set")
	}
	if c.TranscribeProvider != "http" && c.TranscribeProvider != "local" && c.TranscribeProvider != "none" {
		return fmt.Errorf("RTX_TRANSCRIBE_PROVIDER must be one of http, local, none (got %q)", c.TranscribeProvider)
	}
	if c.TranscribeProvider == "http" && c.WhisperURL == "" {
		return fmt.Errorf("RTX_WHISPER_URL must be set when RTX_TRANSCRIBE_PROVIDER=http")
	}
	return nil
}

// Location returns the configured local zone as a *time.Location.
func (c *Config) Location() *time.Location {
	return time.FixedZone(c.ZoneName, c.ZoneOffset)
}
