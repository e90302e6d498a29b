package books

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/models"
)

func newRepoWithMock(t *testing.T, rowLocks bool) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, goqu.Dialect("postgres"), rowLocks), mock
}

const selectQ = `(?s)^SELECT "id", "title", "total_count" FROM "books" WHERE \("id" = \$1\)`

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t, true)

	mock.ExpectExec(`(?s)^INSERT INTO "books" \("id", "title", "total_count"\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(int64(1), "Dune", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), &models.Book{ID: 1, Title: "Dune", TotalCount: 5}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t, true)

	mock.ExpectQuery(selectQ + `\s*$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "total_count"}).AddRow(int64(1), "Dune", 5))

	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &models.Book{ID: 1, Title: "Dune", TotalCount: 5}, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t, true)

	mock.ExpectQuery(selectQ).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGet_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t, true)

	mock.ExpectQuery(selectQ).WithArgs(int64(1)).WillReturnError(errors.New("db err"))

	_, err := repo.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db err")
}

func TestGetForUpdate_LocksRowWhenSupported(t *testing.T) {
	repo, mock := newRepoWithMock(t, true)

	mock.ExpectQuery(selectQ + ` FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "total_count"}).AddRow(int64(1), "Dune", 5))

	_, err := repo.GetForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdate_PlainSelectWithoutRowLocks(t *testing.T) {
	repo, mock := newRepoWithMock(t, false)

	mock.ExpectQuery(selectQ + `\s*$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "total_count"}).AddRow(int64(1), "Dune", 5))

	_, err := repo.GetForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
