// Package ledger keeps per-client loan records. A stored loan always has a
// positive quantity and there is at most one per client and book.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

type Ledger struct {
	tx store.Tx
}

func New(tx store.Tx) *Ledger {
	return &Ledger{tx: tx}
}

// GetLoan returns the client's loan of the book, or nil when there is none.
func (l *Ledger) GetLoan(ctx context.Context, userName string, bookID int64) (*models.Loan, error) {
	loan, err := l.tx.GetLoan(ctx, userName, bookID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %s/%d: %w", userName, bookID, err)
	}
	return loan, nil
}

// UpsertLoan sets the loan's quantity. A quantity of zero or less removes
// the record.
func (l *Ledger) UpsertLoan(ctx context.Context, userName string, bookID int64, quantity int) error {
	var err error
	if quantity <= 0 {
		err = l.tx.DeleteLoan(ctx, userName, bookID)
	} else {
		err = l.tx.UpsertLoan(ctx, userName, bookID, quantity)
	}
	if err != nil {
		return fmt.Errorf("write loan %s/%d: %w", userName, bookID, err)
	}
	return nil
}

// Outstanding is the number of copies of the book on loan to anyone.
func (l *Ledger) Outstanding(ctx context.Context, bookID int64) (int, error) {
	n, err := l.tx.SumLoanedQuantity(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("sum loans of book %d: %w", bookID, err)
	}
	return n, nil
}

// Loans lists the client's loans ordered by book id.
func (l *Ledger) Loans(ctx context.Context, userName string) ([]models.Loan, error) {
	loans, err := l.tx.ListLoans(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("list loans of %s: %w", userName, err)
	}
	return loans, nil
}
