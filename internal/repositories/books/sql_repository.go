// Package books stores catalog entries and their fixed stock totals.
package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/models"
)

const table = "books"

type SQLRepository struct {
	db       dbx.DBTX
	dialect  goqu.DialectWrapper
	rowLocks bool
}

// NewSQLRepository binds the repository to db. rowLocks enables
// SELECT ... FOR UPDATE in GetForUpdate; SQLite has no row locks and
// serializes writers on its own.
func NewSQLRepository(db dbx.DBTX, dialect goqu.DialectWrapper, rowLocks bool) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, rowLocks: rowLocks}
}

func (r *SQLRepository) Create(ctx context.Context, book *models.Book) error {
	query, args, err := r.dialect.Insert(table).
		Cols("id", "title", "total_count").
		Vals(goqu.Vals{book.ID, book.Title, book.TotalCount}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.Book, error) {
	return r.get(ctx, r.selectByID(id))
}

func (r *SQLRepository) GetForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	ds := r.selectByID(id)
	if r.rowLocks {
		ds = ds.ForUpdate(exp.Wait)
	}
	return r.get(ctx, ds)
}

func (r *SQLRepository) selectByID(id int64) *goqu.SelectDataset {
	return r.dialect.From(table).
		Select("id", "title", "total_count").
		Where(goqu.C("id").Eq(id))
}

func (r *SQLRepository) get(ctx context.Context, ds *goqu.SelectDataset) (*models.Book, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	book := &models.Book{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&book.ID, &book.Title, &book.TotalCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return book, nil
}
