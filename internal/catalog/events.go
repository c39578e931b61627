package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Event is a single radio-transmission event — a gathering with a unique
// identifier, under which all of its recordings are grouped.
type Event struct {
	ID   string
	Name string
}

// Events returns every known event, ordered by id.
func (db *DB) Events(ctx context.Context) ([]Event, error) {
	rows, err := db.sqlDB.QueryContext(ctx, `SELECT ID, NAME FROM EVENT ORDER BY ID`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Event looks up a single event by id.
func (db *DB) Event(ctx context.Context, id string) (*Event, error) {
	var e Event
	err := db.sqlDB.QueryRowContext(ctx, `SELECT ID, NAME FROM EVENT WHERE ID = ?`, id).Scan(&e.ID, &e.Name)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &e, nil
}

// CreateEvent inserts a new event, failing with *ConflictError if the id
// is already taken.
func (db *DB) CreateEvent(ctx context.Context, id, name string) error {
	_, err := db.sqlDB.ExecContext(ctx, `INSERT INTO EVENT (ID, NAME) VALUES (?, ?)`, id, name)
	if isUniqueViolation(err) {
		return &ConflictError{Kind: "Event", Key: id}
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CreateEventOrIgnore inserts the event if it is not already present,
// silently accepting an existing row with the same id — the indexer calls
// this at startup so repeated runs against the same event never fail.
func (db *DB) CreateEventOrIgnore(ctx context.Context, id, name string) error {
	_, err := db.sqlDB.ExecContext(ctx, `INSERT OR IGNORE INTO EVENT (ID, NAME) VALUES (?, ?)`, id, name)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && sqliteErr.Code == sqlite3.ErrConstraint
}
