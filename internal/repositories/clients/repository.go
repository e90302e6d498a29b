package clients

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/models"
)

type Repository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByUserName(ctx context.Context, userName string) (*models.Client, error)
}
