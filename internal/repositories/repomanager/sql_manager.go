// Package repomanager vends SQL repositories bound to a DBTX, so the same
// repository code runs on the pool or inside a transaction, and applies the
// embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/migrations"
	"github.com/dmitrijs2005/libcirc/internal/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/repositories/clients"
	"github.com/dmitrijs2005/libcirc/internal/repositories/loans"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// SQLRepositoryManager builds repositories for one SQL dialect.
type SQLRepositoryManager struct {
	dialectName string
	dialect     goqu.DialectWrapper
}

func (m *SQLRepositoryManager) Clients(db dbx.DBTX) clients.Repository {
	return clients.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Books(db dbx.DBTX) books.Repository {
	return books.NewSQLRepository(db, m.dialect, m.dialectName == DialectPostgres)
}

func (m *SQLRepositoryManager) Loans(db dbx.DBTX) loans.Repository {
	return loans.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialectName); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewSQLRepositoryManager returns a manager for dialect, which must be
// DialectPostgres or DialectSQLite.
func NewSQLRepositoryManager(dialect string) (*SQLRepositoryManager, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &SQLRepositoryManager{dialectName: dialect, dialect: goqu.Dialect(dialect)}, nil
}
