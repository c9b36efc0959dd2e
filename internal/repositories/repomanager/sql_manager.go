package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/migrations"
	"github.com/dmitrijs2005/passvault/internal/repositories/attempts"
	"github.com/dmitrijs2005/passvault/internal/repositories/auditlog"
	"github.com/dmitrijs2005/passvault/internal/repositories/entries"
	"github.com/dmitrijs2005/passvault/internal/repositories/settings"
	"github.com/dmitrijs2005/passvault/internal/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager serves both SQLite and PostgreSQL; repositories build
// their queries with a statement builder using the dialect's placeholders.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
	qb      sq.StatementBuilderType
}

func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d, qb: dbx.StatementBuilder(d)}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.qb)
}

func (m *SQLRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewSQLRepository(db, m.qb)
}

func (m *SQLRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewSQLRepository(db, m.qb)
}

func (m *SQLRepositoryManager) AuditLog(db dbx.DBTX) auditlog.Repository {
	return auditlog.NewSQLRepository(db, m.qb)
}

func (m *SQLRepositoryManager) Attempts(db dbx.DBTX) attempts.Repository {
	return attempts.NewSQLRepository(db, m.qb)
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	var err error
	switch m.dialect {
	case dbx.DialectSQLite:
		err = gooseUp(ctx, goose.DialectSQLite3, db, migrations.SQLite())
	case dbx.DialectPostgres:
		err = gooseUp(ctx, goose.DialectPostgres, db, migrations.Postgres())
	default:
		return fmt.Errorf("unsupported dialect %q", m.dialect)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
