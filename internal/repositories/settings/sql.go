package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/models"
)

type SQLRepository struct {
	db dbx.DBTX
	qb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, qb sq.StatementBuilderType) *SQLRepository {
	return &SQLRepository{db: db, qb: qb}
}

func (r *SQLRepository) Get(ctx context.Context, ownerID string) (*models.Settings, error) {
	query, args, err := r.qb.Select("owner_id", "clipboard_timeout", "auto_lock_timeout", "theme", "language").
		From("settings").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s := &models.Settings{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.OwnerID, &s.ClipboardTimeoutSeconds, &s.AutoLockTimeoutSeconds, &s.Theme, &s.Language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Upsert works on both SQLite and PostgreSQL, which share the
// ON CONFLICT ... DO UPDATE syntax.
func (r *SQLRepository) Upsert(ctx context.Context, s models.Settings) error {
	query, args, err := r.qb.Insert("settings").
		Columns("owner_id", "clipboard_timeout", "auto_lock_timeout", "theme", "language").
		Values(s.OwnerID, s.ClipboardTimeoutSeconds, s.AutoLockTimeoutSeconds, s.Theme, s.Language).
		Suffix(`ON CONFLICT (owner_id) DO UPDATE SET
		     clipboard_timeout = excluded.clipboard_timeout,
		     auto_lock_timeout = excluded.auto_lock_timeout,
		     theme = excluded.theme,
		     language = excluded.language`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
