// Package rtxindex is the module root. It holds nothing but the embedded
// schema migration scripts, so that internal/catalog (and any external
// tooling that wants to print or audit the schema) can reach them without
// relative-path tricks that go:embed does not support across package
// boundaries.
package rtxindex

import "embed"

// SchemaFS holds the versioned schema upgrade scripts: "N.sql" for the
// initial create, "N-from-M.sql" for step upgrades.
//
//go:embed schema/*.sql
var SchemaFS embed.FS
