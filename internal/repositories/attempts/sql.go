package attempts

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/passvault/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
	qb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, qb sq.StatementBuilderType) *SQLRepository {
	return &SQLRepository{db: db, qb: qb}
}

func (r *SQLRepository) Record(ctx context.Context, username string, at time.Time) error {
	query, args, err := r.qb.Insert("failed_attempts").
		Columns("username", "attempted_at").
		Values(username, dbx.Nanos(at)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CountSince counts attempts for username at or after since.
func (r *SQLRepository) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	query, args, err := r.qb.Select("COUNT(*)").
		From("failed_attempts").
		Where(sq.Eq{"username": username}).
		Where(sq.GtOrEq{"attempted_at": dbx.Nanos(since)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Clear(ctx context.Context, username string) error {
	query, args, err := r.qb.Delete("failed_attempts").Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// PruneBefore drops attempts older than before and returns how many went.
func (r *SQLRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := r.qb.Delete("failed_attempts").Where(sq.Lt{"attempted_at": dbx.Nanos(before)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
