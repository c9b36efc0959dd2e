// Package migrations embeds the goose SQL migrations, one directory per
// supported dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// SQLite returns the migrations for SQLite.
func SQLite() fs.FS {
	sub, _ := fs.Sub(files, "sqlite")
	return sub
}

// Postgres returns the migrations for PostgreSQL.
func Postgres() fs.FS {
	sub, _ := fs.Sub(files, "postgres")
	return sub
}
