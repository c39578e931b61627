// Package transcribe turns a recording's audio file into text. Providers
// report a failed attempt as an error; TranscribeOrSentinel turns that
// error into text carrying the in-band ErrorSentinel prefix so the
// orchestrator can catalogue the failure and move on instead of halting.
package transcribe

import "context"

// ErrorSentinel is prefixed to the transcription text whenever a provider
// could not produce a transcript. It is stored in the catalog like any
// other transcription — callers distinguish failure from success by
// checking this prefix rather than by a separate error channel, since a
// transcription failure must never fail the recording it belongs to.
const ErrorSentinel = "*** ERROR: "

// Provider is a speech-to-text backend.
type Provider interface {
	// Transcribe returns the best-effort transcript text for the audio
	// file at path. On failure it returns a non-nil error; callers that
	// want the in-band sentinel behavior should use TranscribeOrSentinel.
	Transcribe(ctx context.Context, path string) (string, error)
	// Name identifies the provider for logs and metrics ("http", "local").
	Name() string
}

// TranscribeOrSentinel calls provider.Transcribe and converts any error
// into ErrorSentinel-prefixed text rather than propagating it, matching
// the transcriber's contract that a failed attempt is recorded, not
// thrown away or allowed to halt indexing.
func TranscribeOrSentinel(ctx context.Context, provider Provider, path string) string {
	text, err := provider.Transcribe(ctx, path)
	if err != nil {
		return ErrorSentinel + err.Error()
	}
	return text
}
