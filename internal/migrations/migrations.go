// Package migrations embeds the goose schema migrations. The SQL is kept
// portable between PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
