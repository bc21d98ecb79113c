// Package migrations embeds the per-driver schema migrations.
package migrations

import "embed"

// Applied in filename order by internal/core/db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
