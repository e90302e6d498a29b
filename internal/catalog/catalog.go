// Package catalog answers questions about books: whether a book exists, how
// many copies the library owns and how many of them are on loan.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

// Catalog is bound to a transaction (or a Store for one-off reads).
type Catalog struct {
	tx store.Tx
}

func New(tx store.Tx) *Catalog {
	return &Catalog{tx: tx}
}

// Book returns the book or common.ErrBookNotFound.
func (c *Catalog) Book(ctx context.Context, id int64) (*models.Book, error) {
	b, err := c.tx.GetBook(ctx, id)
	return b, bookErr(id, err)
}

// Lock reads the book and holds its row lock until the enclosing transaction
// ends.
func (c *Catalog) Lock(ctx context.Context, id int64) (*models.Book, error) {
	b, err := c.tx.LockBook(ctx, id)
	return b, bookErr(id, err)
}

// AvailableAndTotal returns how many copies of the book are on loan and how
// many the library owns. The borrowed count is summed from loan records on
// every call.
func (c *Catalog) AvailableAndTotal(ctx context.Context, id int64) (borrowed, total int, err error) {
	b, err := c.Book(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	borrowed, err = c.tx.SumLoanedQuantity(ctx, id)
	if err != nil {
		return 0, 0, fmt.Errorf("sum loans of book %d: %w", id, err)
	}
	return borrowed, b.TotalCount, nil
}

// Stock is AvailableAndTotal packed into a models.Stock.
func (c *Catalog) Stock(ctx context.Context, id int64) (models.Stock, error) {
	borrowed, total, err := c.AvailableAndTotal(ctx, id)
	if err != nil {
		return models.Stock{}, err
	}
	return models.Stock{BookID: id, Total: total, Borrowed: borrowed}, nil
}

func bookErr(id int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return fmt.Errorf("%w: %d", common.ErrBookNotFound, id)
	default:
		return fmt.Errorf("get book %d: %w", id, err)
	}
}
