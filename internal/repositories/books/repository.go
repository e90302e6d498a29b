package books

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/models"
)

type Repository interface {
	Create(ctx context.Context, book *models.Book) error
	Get(ctx context.Context, id int64) (*models.Book, error)
	// GetForUpdate reads the book and, where the backend supports it, holds
	// its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Book, error)
}
