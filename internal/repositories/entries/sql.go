package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
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

var entryColumns = []string{
	"id", "owner_id", "title", "username", "email", "url", "category",
	"password_ciphertext", "password_tag", "password_nonce",
	"notes_ciphertext", "notes_tag", "notes_nonce",
	"created_at", "updated_at", "last_accessed",
}

func ownedBy(ownerID, id string) sq.Eq {
	return sq.Eq{"id": id, "owner_id": ownerID}
}

// sealedColumns maps the three columns of a sealed field; a nil s maps them
// to NULL.
func sealedColumns(prefix string, s *cryptox.Sealed) map[string]any {
	if s == nil {
		return map[string]any{prefix + "_ciphertext": nil, prefix + "_tag": nil, prefix + "_nonce": nil}
	}
	return map[string]any{prefix + "_ciphertext": s.Ciphertext, prefix + "_tag": s.Tag, prefix + "_nonce": s.Nonce}
}

func (r *SQLRepository) Create(ctx context.Context, e *models.Entry) error {
	notes := sealedColumns("notes", e.Notes)
	query, args, err := r.qb.Insert("entries").
		Columns(entryColumns...).
		Values(e.ID, e.OwnerID, e.Title,
			dbx.NullString(e.Username), dbx.NullString(e.Email), dbx.NullString(e.URL),
			e.Category,
			e.Password.Ciphertext, e.Password.Tag, e.Password.Nonce,
			notes["notes_ciphertext"], notes["notes_tag"], notes["notes_nonce"],
			dbx.Nanos(e.CreatedAt), dbx.Nanos(e.UpdatedAt), dbx.NullNanos(e.LastAccessed)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (*models.Entry, error) {
	e := &models.Entry{}
	var (
		username, email, url sql.NullString
		nct, ntag, nnonce    []byte
		created, updated     int64
		lastAccessed         sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.OwnerID, &e.Title, &username, &email, &url, &e.Category,
		&e.Password.Ciphertext, &e.Password.Tag, &e.Password.Nonce,
		&nct, &ntag, &nnonce,
		&created, &updated, &lastAccessed)
	if err != nil {
		return nil, err
	}

	e.Username, e.Email, e.URL = username.String, email.String, url.String
	if nnonce != nil {
		e.Notes = &cryptox.Sealed{Ciphertext: nct, Tag: ntag, Nonce: nnonce}
	}
	e.CreatedAt = dbx.FromNanos(created)
	e.UpdatedAt = dbx.FromNanos(updated)
	e.LastAccessed = dbx.FromNullNanos(lastAccessed)
	return e, nil
}

func (r *SQLRepository) Get(ctx context.Context, ownerID, id string) (*models.Entry, error) {
	query, args, err := r.qb.Select(entryColumns...).From("entries").Where(ownedBy(ownerID, id)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// List returns the owner's entries ordered by title. An empty category
// matches every entry.
func (r *SQLRepository) List(ctx context.Context, ownerID, category string) ([]*models.Entry, error) {
	b := r.qb.Select(entryColumns...).From("entries").Where(sq.Eq{"owner_id": ownerID})
	if category != "" {
		b = b.Where(sq.Eq{"category": category})
	}
	query, args, err := b.OrderBy("title", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	query, args, err := r.qb.Select("category").Distinct().
		From("entries").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// patchColumns lists the columns p changes; updated_at is always among them.
func patchColumns(p models.EntryPatch) map[string]any {
	set := map[string]any{"updated_at": dbx.Nanos(p.UpdatedAt)}

	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Username != nil {
		set["username"] = dbx.NullString(*p.Username)
	}
	if p.Email != nil {
		set["email"] = dbx.NullString(*p.Email)
	}
	if p.URL != nil {
		set["url"] = dbx.NullString(*p.URL)
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Password != nil {
		for col, v := range sealedColumns("password", p.Password) {
			set[col] = v
		}
	}
	if p.Notes != nil || p.ClearNotes {
		for col, v := range sealedColumns("notes", p.Notes) {
			set[col] = v
		}
	}
	return set
}

// Update applies p in a single statement and reports whether a row matched.
func (r *SQLRepository) Update(ctx context.Context, ownerID, id string, p models.EntryPatch) (bool, error) {
	query, args, err := r.qb.Update("entries").
		SetMap(patchColumns(p)).
		Where(ownedBy(ownerID, id)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	return r.execAffected(ctx, query, args...)
}

// ReplaceSecrets rewrites the sealed fields without touching updated_at.
func (r *SQLRepository) ReplaceSecrets(ctx context.Context, ownerID, id string, password cryptox.Sealed, notes *cryptox.Sealed) error {
	set := sealedColumns("notes", notes)
	for col, v := range sealedColumns("password", &password) {
		set[col] = v
	}
	query, args, err := r.qb.Update("entries").SetMap(set).Where(ownedBy(ownerID, id)).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	ok, err := r.execAffected(ctx, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Touch(ctx context.Context, ownerID, id string, at time.Time) error {
	query, args, err := r.qb.Update("entries").
		Set("last_accessed", dbx.Nanos(at)).
		Where(ownedBy(ownerID, id)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	ok, err := r.execAffected(ctx, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	query, args, err := r.qb.Delete("entries").Where(ownedBy(ownerID, id)).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	return r.execAffected(ctx, query, args...)
}

func (r *SQLRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
