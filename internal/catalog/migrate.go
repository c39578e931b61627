package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	rtxindex "github.com/trunk-recorder/rtx-index"
)

// LatestVersion is the schema version this code expects. It increases only
// when a new schema/<N>.sql or schema/<N>-from-<M>.sql script is added.
const LatestVersion = 2

// scriptName returns the embedded script name that upgrades the database
// to version v: "N.sql" for the initial create, "N-from-M.sql" for every
// step after that.
func scriptName(v int) string {
	if v == 1 {
		return "1.sql"
	}
	return fmt.Sprintf("%d-from-%d.sql", v, v-1)
}

// SchemaVersion reads the database's current schema version, returning 0
// if SCHEMA_INFO does not exist yet (a brand new database).
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, db.sqlDB)
}

func schemaVersion(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (int, error) {
	var version int
	err := q.QueryRowContext(ctx, `SELECT VERSION FROM SCHEMA_INFO LIMIT 1`).Scan(&version)
	if err == nil {
		return version, nil
	}
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return 0, nil
	}
	return 0, err
}

// UpgradeSchema brings the database up to targetVersion (or LatestVersion
// if targetVersion is 0), applying embedded upgrade scripts in order. Each
// script runs inside its own transaction; before it commits, the reported
// version is re-read and must equal that step's version (a strict
// increase), or the transaction is rolled back and the run fails with
// *SchemaError. A target below the database's current version is refused
// with *TooNewError — downgrades are not supported.
func (db *DB) UpgradeSchema(ctx context.Context, targetVersion int) error {
	if targetVersion == 0 {
		targetVersion = LatestVersion
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if targetVersion < current {
		return &TooNewError{Current: current, Target: targetVersion}
	}

	for v := current + 1; v <= targetVersion; v++ {
		name := scriptName(v)
		script, err := rtxindex.SchemaFS.ReadFile("schema/" + name)
		if err != nil {
			return &SchemaError{Script: name, Err: fmt.Errorf("read embedded script: %w", err)}
		}

		if err := db.applyScript(ctx, v, name, string(script)); err != nil {
			return err
		}
		db.log.Info().Int("version", v).Str("script", name).Msg("schema migration applied")
	}

	return nil
}

func (db *DB) applyScript(ctx context.Context, targetStep int, name, script string) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return &SchemaError{Script: name, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return &SchemaError{Script: name, Err: err}
	}

	if targetStep == 1 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO SCHEMA_INFO (VERSION) VALUES (?)`, targetStep); err != nil {
			return &SchemaError{Script: name, Err: err}
		}
	} else {
		if _, err := tx.ExecContext(ctx, `UPDATE SCHEMA_INFO SET VERSION = ?`, targetStep); err != nil {
			return &SchemaError{Script: name, Err: err}
		}
	}

	newVersion, err := schemaVersion(ctx, tx)
	if err != nil {
		return &SchemaError{Script: name, Err: err}
	}
	if newVersion != targetStep {
		return &SchemaError{Script: name, Err: fmt.Errorf("expected version %d after migration, got %d", targetStep, newVersion)}
	}

	if err := tx.Commit(); err != nil {
		return &SchemaError{Script: name, Err: err}
	}
	return nil
}
