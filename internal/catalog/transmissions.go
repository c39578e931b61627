package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Recording is a single catalogued transmission: the parsed identity
// fields plus whatever enrichment has completed so far. Duration, SHA256,
// and Transcription are nil until their respective capability has run.
type Recording struct {
	EventID       string
	System        string
	Station       string
	Channel       string
	StartTime     time.Time
	FileName      string
	Duration      *time.Duration
	SHA256        *string
	Transcription *string
	ConflictCount int
}

// Key returns the composite key identifying this recording.
func (r Recording) Key() CompositeKey {
	return NewCompositeKey(r.EventID, r.System, r.Channel, r.StartTime)
}

// Transmissions returns every recording catalogued for the given event,
// ordered by start time.
func (db *DB) Transmissions(ctx context.Context, eventID string) ([]Recording, error) {
	rows, err := db.sqlDB.QueryContext(ctx, `
		SELECT EVENT, STATION, SYSTEM, CHANNEL, START_TIME, DURATION, FILE_NAME, SHA256, TRANSCRIPTION, CONFLICT_COUNT
		FROM TRANSMISSION
		WHERE EVENT = ?
		ORDER BY START_TIME`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query transmissions: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transmission looks up a single recording by its composite key. The
// second return value is false if no matching row exists.
func (db *DB) Transmission(ctx context.Context, key CompositeKey) (*Recording, bool, error) {
	row := db.sqlDB.QueryRowContext(ctx, `
		SELECT EVENT, STATION, SYSTEM, CHANNEL, START_TIME, DURATION, FILE_NAME, SHA256, TRANSCRIPTION, CONFLICT_COUNT
		FROM TRANSMISSION
		WHERE EVENT = ? AND SYSTEM = ? AND CHANNEL = ? AND START_TIME = ?`,
		key.EventID, key.System, key.Channel, key.StartTimeUnix)

	rec, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var (
		rec         Recording
		startUnix   float64
		duration    sql.NullFloat64
		sha256      sql.NullString
		transcribed sql.NullString
	)
	err := row.Scan(&rec.EventID, &rec.Station, &rec.System, &rec.Channel, &startUnix,
		&duration, &rec.FileName, &sha256, &transcribed, &rec.ConflictCount)
	if err != nil {
		return Recording{}, fmt.Errorf("scan transmission: %w", err)
	}

	rec.StartTime = time.Unix(int64(startUnix), 0).UTC()
	if duration.Valid {
		d := time.Duration(duration.Float64 * float64(time.Second))
		rec.Duration = &d
	}
	if sha256.Valid {
		rec.SHA256 = &sha256.String
	}
	if transcribed.Valid {
		rec.Transcription = &transcribed.String
	}
	return rec, nil
}

// CreateTransmission inserts a new recording. A collision on the
// composite key fails with *ConflictError rather than overwriting
// whatever is already catalogued — the orchestrator decides whether that
// is a benign re-scan or a genuine conflict.
func (db *DB) CreateTransmission(ctx context.Context, rec Recording) error {
	key := rec.Key()
	_, err := db.sqlDB.ExecContext(ctx, `
		INSERT INTO TRANSMISSION (EVENT, STATION, SYSTEM, CHANNEL, START_TIME, FILE_NAME)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.EventID, rec.Station, rec.System, rec.Channel, key.StartTimeUnix, rec.FileName)
	if isUniqueViolation(err) {
		return &ConflictError{Kind: "Transmission", Key: key.String()}
	}
	if err != nil {
		return fmt.Errorf("insert transmission: %w", err)
	}
	return nil
}

// IncrementConflictCount records that a re-scan observed a station or path
// mismatch against an already-catalogued recording, without touching its
// other fields. See the resolution for rescan-conflict handling.
func (db *DB) IncrementConflictCount(ctx context.Context, key CompositeKey) error {
	return db.updateTransmission(ctx, key, `UPDATE TRANSMISSION SET CONFLICT_COUNT = CONFLICT_COUNT + 1
		WHERE EVENT = ? AND SYSTEM = ? AND CHANNEL = ? AND START_TIME = ?`)
}

// SetTransmissionDuration records the probed duration of a recording.
func (db *DB) SetTransmissionDuration(ctx context.Context, key CompositeKey, d time.Duration) error {
	return db.updateTransmissionWithValue(ctx, key,
		`UPDATE TRANSMISSION SET DURATION = ? WHERE EVENT = ? AND SYSTEM = ? AND CHANNEL = ? AND START_TIME = ?`,
		d.Seconds())
}

// SetTransmissionSHA256 records the content hash of a recording's audio file.
func (db *DB) SetTransmissionSHA256(ctx context.Context, key CompositeKey, sum string) error {
	return db.updateTransmissionWithValue(ctx, key,
		`UPDATE TRANSMISSION SET SHA256 = ? WHERE EVENT = ? AND SYSTEM = ? AND CHANNEL = ? AND START_TIME = ?`,
		sum)
}

// SetTransmissionTranscription records the transcript text produced for a
// recording, including the in-band "*** ERROR: " sentinel on failure.
func (db *DB) SetTransmissionTranscription(ctx context.Context, key CompositeKey, text string) error {
	return db.updateTransmissionWithValue(ctx, key,
		`UPDATE TRANSMISSION SET TRANSCRIPTION = ? WHERE EVENT = ? AND SYSTEM = ? AND CHANNEL = ? AND START_TIME = ?`,
		text)
}

func (db *DB) updateTransmissionWithValue(ctx context.Context, key CompositeKey, query string, value any) error {
	res, err := db.sqlDB.ExecContext(ctx, query, value, key.EventID, key.System, key.Channel, key.StartTimeUnix)
	if err != nil {
		return fmt.Errorf("update transmission: %w", err)
	}
	return checkAffected(res, key)
}

func (db *DB) updateTransmission(ctx context.Context, key CompositeKey, query string) error {
	res, err := db.sqlDB.ExecContext(ctx, query, key.EventID, key.System, key.Channel, key.StartTimeUnix)
	if err != nil {
		return fmt.Errorf("update transmission: %w", err)
	}
	return checkAffected(res, key)
}

func checkAffected(res sql.Result, key CompositeKey) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Key: key.String()}
	}
	return nil
}
