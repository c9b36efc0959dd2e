package settings

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, sq.StatementBuilder), mock
}

func TestGet_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"owner_id", "clipboard_timeout", "auto_lock_timeout", "theme", "language"}).
		AddRow("u1", 30, 300, "dark", "ar")
	mock.ExpectQuery(`(?s)^SELECT\s+owner_id,.*FROM\s+settings\s+WHERE\s+owner_id\s*=\s*\?$`).
		WithArgs("u1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.Settings{OwnerID: "u1", ClipboardTimeoutSeconds: 30, AutoLockTimeoutSeconds: 300, Theme: "dark", Language: "ar"}, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+settings`).WithArgs("u1").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^INSERT\s+INTO\s+settings.*ON\s+CONFLICT\s*\(owner_id\)\s+DO\s+UPDATE\s+SET`

	mock.ExpectExec(q).WithArgs("u1", 10, 60, "light", "en").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(context.Background(), models.Settings{
		OwnerID: "u1", ClipboardTimeoutSeconds: 10, AutoLockTimeoutSeconds: 60, Theme: "light", Language: "en",
	}))

	mock.ExpectExec(q).WillReturnError(errors.New("locked"))
	err := repo.Upsert(context.Background(), models.Settings{OwnerID: "u1"})
	assert.ErrorContains(t, err, "db error: locked")

	require.NoError(t, mock.ExpectationsWereMet())
}
