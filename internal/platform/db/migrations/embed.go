// Package migrations embeds the SQL schema shared by the PostgreSQL and SQLite stores.
package migrations

import "embed"

// FS contains the ordered schema migrations.
//
//go:embed *.sql
var FS embed.FS
