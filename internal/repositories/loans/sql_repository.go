// Package loans stores per-client, per-book loan quantities.
package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/models"
)

const table = "loans"

type SQLRepository struct {
	db      dbx.DBTX
	dialect goqu.DialectWrapper
}

func NewSQLRepository(db dbx.DBTX, dialect goqu.DialectWrapper) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func byKey(userName string, bookID int64) []goqu.Expression {
	return []goqu.Expression{goqu.C("username").Eq(userName), goqu.C("book_id").Eq(bookID)}
}

func (r *SQLRepository) Get(ctx context.Context, userName string, bookID int64) (*models.Loan, error) {
	query, args, err := r.dialect.From(table).
		Select("username", "book_id", "quantity").
		Where(byKey(userName, bookID)...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	loan := &models.Loan{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&loan.UserName, &loan.BookID, &loan.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return loan, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userName string) ([]models.Loan, error) {
	query, args, err := r.dialect.From(table).
		Select("username", "book_id", "quantity").
		Where(goqu.C("username").Eq(userName)).
		Order(goqu.C("book_id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Loan, 0)
	for rows.Next() {
		var loan models.Loan
		if err := rows.Scan(&loan.UserName, &loan.BookID, &loan.Quantity); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		result = append(result, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) SumByBook(ctx context.Context, bookID int64) (int, error) {
	query, args, err := r.dialect.From(table).
		Select(goqu.COALESCE(goqu.SUM("quantity"), goqu.L("0"))).
		Where(goqu.C("book_id").Eq(bookID)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sum int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(sum), nil
}

// Upsert updates the existing row and inserts one when nothing was updated.
// Callers hold the book lock, so no other writer can slip in between.
func (r *SQLRepository) Upsert(ctx context.Context, userName string, bookID int64, quantity int) error {
	query, args, err := r.dialect.Update(table).
		Set(goqu.Record{"quantity": quantity, "updated_at": goqu.L("CURRENT_TIMESTAMP")}).
		Where(byKey(userName, bookID)...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	query, args, err = r.dialect.Insert(table).
		Cols("username", "book_id", "quantity").
		Vals(goqu.Vals{userName, bookID, quantity}).
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

func (r *SQLRepository) Delete(ctx context.Context, userName string, bookID int64) error {
	query, args, err := r.dialect.Delete(table).
		Where(byKey(userName, bookID)...).
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
