package catalog

import "fmt"

// ConflictError is returned when a create would collide with an existing
// row — a duplicate Event id or a composite-key collision on Transmission.
type ConflictError struct {
	Kind string // "Event" or "Transmission"
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
}

// NotFoundError is returned when a targeted write addresses a row that
// does not exist.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transmission not found: %s", e.Key)
}

// SchemaError is returned when a migration script fails to apply, or
// succeeds without strictly increasing the reported schema version.
type SchemaError struct {
	Script string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema migration %s failed: %v", e.Script, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// TooNewError is returned when the database's current schema version is
// already newer than the requested target — downgrades are refused.
type TooNewError struct {
	Current int
	Target  int
}

func (e *TooNewError) Error() string {
	return fmt.Sprintf("database schema version %d is newer than requested target %d", e.Current, e.Target)
}
