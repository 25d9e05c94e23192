package runstore

import "embed"

// sqlSchemas is an embedded file system containing the SQL migration files
// for the run-history database. Embedding at compile time keeps the `loom`
// binary self-contained — no migration files need to ship alongside it.
//
//go:embed migrations/*.sql
var sqlSchemas embed.FS
