// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds the migration files in golang-migrate naming format.
//
//go:embed *.sql
var FS embed.FS
