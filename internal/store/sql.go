package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/repositories/repomanager"
)

// sqlTx implements Tx on top of repositories bound to a DBTX, which is the
// pool outside transactions and a *sql.Tx inside them.
type sqlTx struct {
	db dbx.DBTX
	rm repomanager.RepositoryManager
}

func (t sqlTx) FindClient(ctx context.Context, userName string) (*models.Client, error) {
	c, err := t.rm.Clients(t.db).GetByUserName(ctx, userName)
	return c, classify(err)
}

func (t sqlTx) InsertClient(ctx context.Context, client *models.Client) error {
	return classify(t.rm.Clients(t.db).Create(ctx, client))
}

func (t sqlTx) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := t.rm.Books(t.db).Get(ctx, id)
	return b, classify(err)
}

func (t sqlTx) LockBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := t.rm.Books(t.db).GetForUpdate(ctx, id)
	return b, classify(err)
}

func (t sqlTx) InsertBook(ctx context.Context, book *models.Book) error {
	return classify(t.rm.Books(t.db).Create(ctx, book))
}

func (t sqlTx) SumLoanedQuantity(ctx context.Context, bookID int64) (int, error) {
	n, err := t.rm.Loans(t.db).SumByBook(ctx, bookID)
	return n, classify(err)
}

func (t sqlTx) GetLoan(ctx context.Context, userName string, bookID int64) (*models.Loan, error) {
	l, err := t.rm.Loans(t.db).Get(ctx, userName, bookID)
	return l, classify(err)
}

func (t sqlTx) ListLoans(ctx context.Context, userName string) ([]models.Loan, error) {
	l, err := t.rm.Loans(t.db).ListByUser(ctx, userName)
	return l, classify(err)
}

func (t sqlTx) UpsertLoan(ctx context.Context, userName string, bookID int64, quantity int) error {
	return classify(t.rm.Loans(t.db).Upsert(ctx, userName, bookID, quantity))
}

func (t sqlTx) DeleteLoan(ctx context.Context, userName string, bookID int64) error {
	return classify(t.rm.Loans(t.db).Delete(ctx, userName, bookID))
}

// SQLStore is a Store over database/sql.
type SQLStore struct {
	sqlTx
	conn *sql.DB
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{sqlTx: sqlTx{db: db, rm: rm}, conn: db}
}

func (s *SQLStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := dbx.WithTx(ctx, s.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, sqlTx{db: tx, rm: s.sqlTx.rm})
	})
	return classify(err)
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}
