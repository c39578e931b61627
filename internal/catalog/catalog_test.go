package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
)

func openTestDB(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Connect("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.UpgradeSchema(context.Background(), 0))
	return db
}

func TestUpgradeSchemaReachesLatest(t *testing.T) {
	db := openTestDB(t)
	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, catalog.LatestVersion, v)
}

func TestUpgradeSchemaRefusesDowngrade(t *testing.T) {
	db := openTestDB(t)
	err := db.UpgradeSchema(context.Background(), 1)
	require.Error(t, err)
	var tooNew *catalog.TooNewError
	require.ErrorAs(t, err, &tooNew)
}

func TestCreateEventThenConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateEvent(ctx, "148", "Ranger Event 148"))

	err := db.CreateEvent(ctx, "148", "duplicate")
	require.Error(t, err)
	var conflict *catalog.ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, db.CreateEventOrIgnore(ctx, "148", "ignored"))

	events, err := db.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Ranger Event 148", events[0].Name)
}

func TestTransmissionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateEvent(ctx, "148", "Ranger Event 148"))

	start := time.Date(2023, 8, 24, 18, 28, 5, 0, time.FixedZone("PDT", -7*60*60))
	rec := catalog.Recording{
		EventID:   "148",
		System:    "Conventional A",
		Station:   "Ranger Evnt 148",
		Channel:   "RANGER TAC 1",
		StartTime: start,
		FileName:  "2023-08-24 18-28-05 SYSTEM A Group Call- 'Ranger Evnt 148' called 'RANGER TAC 1'.wav",
	}
	require.NoError(t, db.CreateTransmission(ctx, rec))

	err := db.CreateTransmission(ctx, rec)
	require.Error(t, err)
	var conflict *catalog.ConflictError
	require.ErrorAs(t, err, &conflict)

	key := rec.Key()
	got, ok, err := db.Transmission(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.FileName, got.FileName)
	require.Nil(t, got.Duration)
	require.Nil(t, got.SHA256)

	require.NoError(t, db.SetTransmissionDuration(ctx, key, 12500*time.Millisecond))
	require.NoError(t, db.SetTransmissionSHA256(ctx, key, "deadbeef"))
	require.NoError(t, db.SetTransmissionTranscription(ctx, key, "*** ERROR: provider unavailable"))
	require.NoError(t, db.IncrementConflictCount(ctx, key))

	got, ok, err = db.Transmission(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 12500*time.Millisecond, *got.Duration)
	require.Equal(t, "deadbeef", *got.SHA256)
	require.Equal(t, "*** ERROR: provider unavailable", *got.Transcription)
	require.Equal(t, 1, got.ConflictCount)

	list, err := db.Transmissions(ctx, "148")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestTransmissionNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	key := catalog.NewCompositeKey("148", "Conventional A", "RANGER TAC 1", time.Now())
	err := db.SetTransmissionDuration(ctx, key, time.Second)
	require.Error(t, err)
	var notFound *catalog.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, ok, err := db.Transmission(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
