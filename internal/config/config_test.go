package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RTX_EVENT_ID", "2023")
	t.Setenv("RTX_SOURCE_DIR", "/tmp/recordings")

	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "2023", cfg.EventID)
	assert.Equal(t, "/tmp/recordings", cfg.SourceDir)
	assert.Equal(t, "./rtx.sqlite", cfg.StoreFile)
	assert.Equal(t, 8, cfg.MaxTasks)
	assert.Equal(t, "PDT", cfg.ZoneName)
	assert.Equal(t, -25200, cfg.ZoneOffset)
}

func TestLoadOverridesWinOverEnv(t *testing.T) {
	t.Setenv("RTX_EVENT_ID", "2023")
	t.Setenv("RTX_SOURCE_DIR", "/tmp/recordings")

	cfg, err := Load(Overrides{
		EnvFile:   filepath.Join(t.TempDir(), "missing.env"),
		SourceDir: "/data/recordings",
		EventID:   "2024",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024", cfg.EventID)
	assert.Equal(t, "/data/recordings", cfg.SourceDir)
}

func TestValidate(t *testing.T) {
	cfg := &Config{EventID: "2023", SourceDir: "/tmp", TranscribeProvider: "none"}
	assert.NoError(t, cfg.Validate())

	cfg.EventID = ""
	assert.Error(t, cfg.Validate())

	cfg.EventID = "2023"
	cfg.SourceDir = ""
	cfg.ExistingOnly = false
	assert.Error(t, cfg.Validate())

	cfg.ExistingOnly = true
	assert.NoError(t, cfg.Validate())

	cfg.TranscribeProvider = "http"
	assert.Error(t, cfg.Validate(), "http provider requires WhisperURL")
	cfg.WhisperURL = "http://localhost:9000"
	assert.NoError(t, cfg.Validate())

	cfg.TranscribeProvider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := &Config{ZoneName: "PDT", ZoneOffset: -25200}
	loc := cfg.Location()
	name, offset := time.Date(2023, 8, 24, 18, 28, 5, 0, loc).Zone()
	assert.Equal(t, "PDT", name)
	assert.Equal(t, -25200, offset)
}

var _ = os.Getenv
