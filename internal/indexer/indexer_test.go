package indexer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/capability"
	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/indexer"
	"github.com/trunk-recorder/rtx-index/internal/transcribe"
)

func newCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Connect("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.UpgradeSchema(context.Background(), 0))
	return db
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0o644))
	return path
}

var pdt = time.FixedZone("PDT", -7*60*60)

func TestIndexIntoStoreBasicParse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023-08-24 18-28-05 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 1'.wav")

	db := newCatalog(t)
	orch := indexer.New(db, indexer.Capabilities{}, zerolog.Nop())

	err := orch.IndexIntoStore(context.Background(), indexer.Options{
		EventID: "2023", EventName: "2023", SourceDir: dir, Location: pdt, MaxTasks: 2, QueueSize: 8,
	})
	require.NoError(t, err)

	recs, err := db.Transmissions(context.Background(), "2023")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Conventional A", recs[0].System)
	require.Equal(t, "Ranger Evnt 148", recs[0].Station)
	require.Equal(t, "RANGER TAC 1", recs[0].Channel)
	require.Equal(t, time.Date(2023, 8, 24, 18, 28, 5, 0, pdt), recs[0].StartTime.In(pdt))
}

func TestIndexIntoStoreEnrichmentPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023-08-24 18-28-05 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 1'.wav")

	db := newCatalog(t)
	caps := indexer.Capabilities{
		Hasher:      capability.NewContentHasher(),
		Transcriber: stubProvider{text: "radio check, copy"},
	}
	orch := indexer.New(db, caps, zerolog.Nop())

	opts := indexer.Options{
		EventID: "2023", EventName: "2023", SourceDir: dir, Location: pdt,
		ComputeChecksum: true, ComputeTranscription: true, MaxTasks: 2, QueueSize: 8,
	}
	require.NoError(t, orch.IndexIntoStore(context.Background(), opts))

	recs, err := db.Transmissions(context.Background(), "2023")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].SHA256)
	require.Len(t, *recs[0].SHA256, 64)
	require.NotNil(t, recs[0].Transcription)
	require.Equal(t, "radio check, copy", *recs[0].Transcription)

	// Re-running over the unchanged tree must not re-invoke enrichment —
	// only missing attributes are enqueued.
	require.NoError(t, orch.IndexIntoStore(context.Background(), opts))
	recs2, err := db.Transmissions(context.Background(), "2023")
	require.NoError(t, err)
	require.Equal(t, *recs[0].SHA256, *recs2[0].SHA256)
}

func TestIndexIntoStorePartialFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023-08-24 18-28-05 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 1'.wav")
	writeFile(t, dir, "2023-08-24 19-00-00 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 2'.wav")

	db := newCatalog(t)
	caps := indexer.Capabilities{
		Transcriber: failOnChannel{channel: "RANGER TAC 2", okText: "all clear"},
	}
	orch := indexer.New(db, caps, zerolog.Nop())

	require.NoError(t, orch.IndexIntoStore(context.Background(), indexer.Options{
		EventID: "2023", EventName: "2023", SourceDir: dir, Location: pdt,
		ComputeTranscription: true, MaxTasks: 2, QueueSize: 8,
	}))

	recs, err := db.Transmissions(context.Background(), "2023")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byChannel := map[string]*string{}
	for _, r := range recs {
		byChannel[r.Channel] = r.Transcription
	}
	require.Equal(t, "all clear", *byChannel["RANGER TAC 1"])
	require.True(t, strings.HasPrefix(*byChannel["RANGER TAC 2"], transcribe.ErrorSentinel))
}

func TestIndexIntoStoreConflictDetection(t *testing.T) {
	dir := t.TempDir()
	// Same event/system/channel/start time, different station.
	writeFile(t, dir, "2023-08-24 18-28-05 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 1'.wav")

	db := newCatalog(t)
	orch := indexer.New(db, indexer.Capabilities{}, zerolog.Nop())
	opts := indexer.Options{EventID: "2023", EventName: "2023", SourceDir: dir, Location: pdt, MaxTasks: 2, QueueSize: 8}
	require.NoError(t, orch.IndexIntoStore(context.Background(), opts))

	// Second scan directory has a conflicting station for the same key.
	dir2 := t.TempDir()
	writeFile(t, dir2, "2023-08-24 18-28-05 SYSTEM A Group Call- 'Different Station' called 'RANGER TAC 1'.wav")
	opts2 := opts
	opts2.SourceDir = dir2
	require.NoError(t, orch.IndexIntoStore(context.Background(), opts2))

	recs, err := db.Transmissions(context.Background(), "2023")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Ranger Evnt 148", recs[0].Station)
}

type stubProvider struct{ text string }

func (s stubProvider) Transcribe(ctx context.Context, path string) (string, error) { return s.text, nil }
func (s stubProvider) Name() string                                               { return "stub" }

type failOnChannel struct {
	channel string
	okText  string
}

func (f failOnChannel) Transcribe(ctx context.Context, path string) (string, error) {
	if strings.Contains(path, f.channel) {
		return "", errTranscriptionUnavailable
	}
	return f.okText, nil
}
func (f failOnChannel) Name() string { return "fail-on-channel" }

var errTranscriptionUnavailable = &transcribeErr{"provider unavailable"}

type transcribeErr struct{ msg string }

func (e *transcribeErr) Error() string { return e.msg }
