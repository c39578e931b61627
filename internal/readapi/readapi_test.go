package readapi_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
	"github.com/trunk-recorder/rtx-index/internal/readapi"
	"github.com/trunk-recorder/rtx-index/internal/searchindex"
)

func setup(t *testing.T) (readapi.API, catalog.Recording) {
	t.Helper()
	ctx := context.Background()

	db, err := catalog.Connect("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.UpgradeSchema(ctx, 0))
	require.NoError(t, db.CreateEvent(ctx, "2023", "2023"))

	dir := t.TempDir()
	path := filepath.Join(dir, "tac1.wav")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))

	rec := catalog.Recording{
		EventID: "2023", System: "Conventional A", Station: "Ranger Evnt 148",
		Channel: "RANGER TAC 1", StartTime: time.Date(2023, 8, 24, 18, 28, 5, 0, time.UTC),
		FileName: path,
	}
	require.NoError(t, db.CreateTransmission(ctx, rec))
	require.NoError(t, db.SetTransmissionTranscription(ctx, rec.Key(), "radio check"))

	idx, _, err := searchindex.Connect("", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, searchindex.Rebuild(ctx, idx, db))

	return readapi.New(db, idx), rec
}

func TestEventsAndRecording(t *testing.T) {
	api, rec := setup(t)
	ctx := context.Background()

	events, err := api.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got, err := api.Recording(ctx, rec.Key())
	require.NoError(t, err)
	require.Equal(t, rec.Station, got.Station)
}

func TestRecordingsTimeRangeFilter(t *testing.T) {
	api, rec := setup(t)
	ctx := context.Background()

	before := rec.StartTime.Add(-time.Minute)
	after := rec.StartTime.Add(time.Minute)

	recs, err := api.Recordings(ctx, "2023", &before, &after)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	tooLate := rec.StartTime.Add(time.Hour)
	recs, err = api.Recordings(ctx, "2023", &tooLate, nil)
	require.NoError(t, err)
	require.Len(t, recs, 0)

	recs, err = api.Recordings(ctx, "2023", nil, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestSearchAndAudioBytes(t *testing.T) {
	api, rec := setup(t)
	ctx := context.Background()

	keys, err := api.Search(ctx, "radio", 10)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, rec.Key(), keys[0])

	data, err := api.AudioBytes(ctx, rec.Key())
	require.NoError(t, err)
	require.Equal(t, []byte("audio-bytes"), data)
}

func TestRecordingNotFound(t *testing.T) {
	api, _ := setup(t)
	_, err := api.Recording(context.Background(), catalog.NewCompositeKey("2023", "missing", "missing", time.Now()))
	require.Error(t, err)
	var notFound *catalog.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
