package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/repositories/clients"
	"github.com/dmitrijs2005/libcirc/internal/repositories/loans"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Clients(db dbx.DBTX) clients.Repository
	Books(db dbx.DBTX) books.Repository
	Loans(db dbx.DBTX) loans.Repository
}
