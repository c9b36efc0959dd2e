package auditlog

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
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

// Append stores e and sets its ID.
func (r *SQLRepository) Append(ctx context.Context, e *models.AuditLogEntry) error {
	query, args, err := r.qb.Insert("audit_log").
		Columns("owner_id", "action", "details", "created_at").
		Values(e.OwnerID, e.Action, dbx.NullString(e.Details), dbx.Nanos(e.Timestamp)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List returns up to limit records for ownerID, newest first. A limit
// below one returns nothing.
func (r *SQLRepository) List(ctx context.Context, ownerID string, limit int) ([]models.AuditLogEntry, error) {
	result := make([]models.AuditLogEntry, 0)
	if limit < 1 {
		return result, nil
	}

	query, args, err := r.qb.Select("id", "owner_id", "action", "details", "created_at").
		From("audit_log").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       models.AuditLogEntry
			details sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Action, &details, &created); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Details = details.String
		e.Timestamp = dbx.FromNanos(created)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
