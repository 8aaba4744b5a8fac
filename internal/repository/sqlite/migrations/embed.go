// Package migrations holds the SQLite schema as ordered .sql files and
// applies the ones a database has not seen yet.
package migrations

import "embed"

// FS contains the migration files, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
