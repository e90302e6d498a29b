package loans

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/models"
)

type Repository interface {
	Get(ctx context.Context, userName string, bookID int64) (*models.Loan, error)
	ListByUser(ctx context.Context, userName string) ([]models.Loan, error)
	SumByBook(ctx context.Context, bookID int64) (int, error)
	// Upsert sets the loan quantity, creating the row if needed.
	Upsert(ctx context.Context, userName string, bookID int64, quantity int) error
	Delete(ctx context.Context, userName string, bookID int64) error
}
