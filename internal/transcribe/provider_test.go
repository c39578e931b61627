package transcribe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/transcribe"
)

type stubProvider struct {
	text string
	err  error
}

func (s stubProvider) Transcribe(ctx context.Context, path string) (string, error) {
	return s.text, s.err
}

func (s stubProvider) Name() string { return "stub" }

func TestTranscribeOrSentinelSuccess(t *testing.T) {
	got := transcribe.TranscribeOrSentinel(context.Background(), stubProvider{text: "clear copy"}, "a.wav")
	require.Equal(t, "clear copy", got)
}

func TestTranscribeOrSentinelFailure(t *testing.T) {
	got := transcribe.TranscribeOrSentinel(context.Background(), stubProvider{err: errors.New("provider unavailable")}, "a.wav")
	require.Equal(t, "*** ERROR: provider unavailable", got)
	require.True(t, len(got) > len(transcribe.ErrorSentinel))
}
