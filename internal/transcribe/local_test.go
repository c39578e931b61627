package transcribe_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/transcribe"
)

func fakeWhisperBinary(t *testing.T, text string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake whisper script requires a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "whisper")
	script := "#!/bin/sh\nprintf '%s' \"" + text + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestLocalProviderTranscribes(t *testing.T) {
	bin := fakeWhisperBinary(t, "copy that")
	p := transcribe.NewLocalProvider(bin)

	text, err := p.Transcribe(context.Background(), "call.wav")
	require.NoError(t, err)
	require.Equal(t, "copy that", text)
	require.Equal(t, "local", p.Name())
}

func TestLocalProviderFailurePropagates(t *testing.T) {
	p := transcribe.NewLocalProvider(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := p.Transcribe(context.Background(), "call.wav")
	require.Error(t, err)
}
