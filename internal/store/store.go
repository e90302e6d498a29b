// Package store is the persistence port of the circulation tool: the
// operations the catalog, ledger and auth gateway need, plus an atomic
// transaction scope around them.
//
// Two backends are provided: SQLStore (PostgreSQL through pgx or SQLite
// through modernc, sharing one set of repositories) and MemoryStore.
//
// Absent rows are reported as common.ErrNotFound and key clashes as
// common.ErrDuplicateKey. Backend failures are classified into
// common.ErrTransactionConflict (safe to retry) and common.ErrConnectionLost.
package store

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/models"
)

// Tx is the set of operations available inside a transaction. A Store also
// implements it for single statements outside one.
type Tx interface {
	FindClient(ctx context.Context, userName string) (*models.Client, error)
	InsertClient(ctx context.Context, client *models.Client) error

	GetBook(ctx context.Context, id int64) (*models.Book, error)
	// LockBook reads the book and keeps other transactions from locking it
	// until this one ends.
	LockBook(ctx context.Context, id int64) (*models.Book, error)
	InsertBook(ctx context.Context, book *models.Book) error

	SumLoanedQuantity(ctx context.Context, bookID int64) (int, error)
	GetLoan(ctx context.Context, userName string, bookID int64) (*models.Loan, error)
	ListLoans(ctx context.Context, userName string) ([]models.Loan, error)
	UpsertLoan(ctx context.Context, userName string, bookID int64, quantity int) error
	DeleteLoan(ctx context.Context, userName string, bookID int64) error
}

type Store interface {
	Tx
	// WithTransaction runs fn atomically: every write fn made is committed
	// when it returns nil and none is visible when it returns an error.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
