package loans

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

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, goqu.Dialect("postgres")), mock
}

const (
	whereKey = `WHERE \(\("username" = \$\d\) AND \("book_id" = \$\d\)\)`
	updateQ  = `(?s)^UPDATE "loans" SET .*"quantity"\s*=\s*\$1.*` + whereKey
	insertQ  = `(?s)^INSERT INTO "loans" \("username", "book_id", "quantity"\) VALUES \(\$1, \$2, \$3\)`
)

func TestGet_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT "username", "book_id", "quantity" FROM "loans" ` + whereKey).
		WithArgs("alice", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "book_id", "quantity"}).AddRow("alice", int64(1), 3))

	got, err := repo.Get(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, &models.Loan{UserName: "alice", BookID: 1, Quantity: 3}, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM "loans"`).WithArgs("carol", int64(1)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "carol", 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM "loans" WHERE \("username" = \$1\) ORDER BY "book_id" ASC`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "book_id", "quantity"}).
			AddRow("alice", int64(1), 2).
			AddRow("alice", int64(4), 1))

	got, err := repo.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []models.Loan{
		{UserName: "alice", BookID: 1, Quantity: 2},
		{UserName: "alice", BookID: 4, Quantity: 1},
	}, got)
}

func TestListByUser_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM "loans"`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"username", "book_id", "quantity"}))

	got, err := repo.ListByUser(context.Background(), "bob")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSumByBook(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT COALESCE\(SUM\("quantity"\), 0\) FROM "loans" WHERE \("book_id" = \$1\)`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(4)))

	got, err := repo.SumByBook(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestUpsert_UpdatesExistingRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updateQ).
		WithArgs(5, "alice", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), "alice", 1, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_InsertsWhenNothingUpdated(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updateQ).
		WithArgs(2, "alice", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertQ).
		WithArgs("alice", int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), "alice", 1, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updateQ).WillReturnError(errors.New("db down"))

	err := repo.Upsert(context.Background(), "alice", 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^DELETE FROM "loans" ` + whereKey).
		WithArgs("alice", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "alice", 1))
	require.NoError(t, mock.ExpectationsWereMet())
}
