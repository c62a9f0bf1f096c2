// Package migrations holds the Postgres schema, embedded into the binary.
package migrations

import "embed"

// FS contains the golang-migrate NNNNNN_name.{up,down}.sql files.
//
//go:embed *.sql
var FS embed.FS
