// Package repomanager vends repositories bound to a DBTX so a caller can
// compose several of them inside one transaction, and runs the schema
// migrations for the configured dialect.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/repositories/attempts"
	"github.com/dmitrijs2005/passvault/internal/repositories/auditlog"
	"github.com/dmitrijs2005/passvault/internal/repositories/entries"
	"github.com/dmitrijs2005/passvault/internal/repositories/settings"
	"github.com/dmitrijs2005/passvault/internal/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entries(db dbx.DBTX) entries.Repository
	Settings(db dbx.DBTX) settings.Repository
	AuditLog(db dbx.DBTX) auditlog.Repository
	Attempts(db dbx.DBTX) attempts.Repository
}
