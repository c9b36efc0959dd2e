package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/filex"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DialectFor picks the dialect from a DSN: postgres:// and postgresql://
// URLs go to PostgreSQL, anything else is a SQLite path or file: URI.
func DialectFor(dsn string) dbx.Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return dbx.DialectPostgres
	}
	return dbx.DialectSQLite
}

// Open connects to dsn, migrates the schema and returns the handle together
// with a manager for its dialect.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	d := DialectFor(dsn)

	var (
		db  *sql.DB
		err error
	)
	switch d {
	case dbx.DialectPostgres:
		db, err = sql.Open("pgx", dsn)
	default:
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, nil, err
		}
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// one writer; also keeps ":memory:" databases on a single connection
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if d == dbx.DialectSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	m := NewSQLRepositoryManager(d)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	_, err := filex.EnsureDir(dir)
	return err
}
