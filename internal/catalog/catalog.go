// Package catalog is the durable relational store of Events and Recordings.
// It is backed by SQLite (via mattn/go-sqlite3) and a small set of
// schema-versioned upgrade scripts embedded at the module root.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is a handle to the catalog. All public operations are their own
// committed unit; after a successful write returns, a subsequent read
// observes it (read-your-writes), which SQLite gives us for free as long
// as every operation goes through the same *sql.DB.
type DB struct {
	sqlDB *sql.DB
	log   zerolog.Logger
	path  string // empty for in-memory; used by the search index freshness check
}

// Connect opens (and creates, if absent) the SQLite catalog at path. An
// empty path opens a private in-memory database — useful for tests and for
// existingOnly reads that never need to persist.
func Connect(path string, log zerolog.Logger) (*DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else {
		dsn += "?_foreign_keys=on"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	// SQLite only supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under the indexer's concurrent enrichment writers.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite catalog: %w", err)
	}

	log.Info().Str("path", displayPath(path)).Msg("catalog connected")
	return &DB{sqlDB: sqlDB, log: log, path: path}, nil
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

// Path returns the catalog's backing file path, or "" for in-memory —
// used by the search index to decide its freshness policy.
func (db *DB) Path() string {
	return db.path
}

// Close releases the catalog's database handle.
func (db *DB) Close() error {
	db.log.Info().Msg("closing catalog")
	return db.sqlDB.Close()
}
