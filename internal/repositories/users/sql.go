package users

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

var userColumns = []string{
	"id", "username", "password_hash", "password_salt",
	"scrypt_n", "scrypt_r", "scrypt_p", "pbkdf2_iterations", "created_at",
}

// Create inserts u. A duplicate username yields common.ErrUsernameTaken.
func (r *SQLRepository) Create(ctx context.Context, u *models.MasterUser) error {
	query, args, err := r.qb.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Username, u.PasswordHash, u.PasswordSalt,
			u.KDF.Scrypt.N, u.KDF.Scrypt.R, u.KDF.Scrypt.P, u.KDF.PBKDF2Iterations,
			dbx.Nanos(u.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrUsernameTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.MasterUser, error) {
	return r.getBy(ctx, sq.Eq{"username": username})
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.MasterUser, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *SQLRepository) getBy(ctx context.Context, where sq.Eq) (*models.MasterUser, error) {
	query, args, err := r.qb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	u := &models.MasterUser{}
	var created int64
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PasswordSalt,
			&u.KDF.Scrypt.N, &u.KDF.Scrypt.R, &u.KDF.Scrypt.P, &u.KDF.PBKDF2Iterations, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = dbx.FromNanos(created)
	return u, nil
}

func (r *SQLRepository) UpdateCredentials(ctx context.Context, id string, hash, salt []byte, kdf models.KDFParams) error {
	query, args, err := r.qb.Update("users").
		Set("password_hash", hash).
		Set("password_salt", salt).
		Set("scrypt_n", kdf.Scrypt.N).
		Set("scrypt_r", kdf.Scrypt.R).
		Set("scrypt_p", kdf.Scrypt.P).
		Set("pbkdf2_iterations", kdf.PBKDF2Iterations).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
