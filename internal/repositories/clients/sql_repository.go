// Package clients stores library clients and their credential verifiers.
package clients

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

const table = "clients"

type SQLRepository struct {
	db      dbx.DBTX
	dialect goqu.DialectWrapper
}

func NewSQLRepository(db dbx.DBTX, dialect goqu.DialectWrapper) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, client *models.Client) error {
	query, args, err := r.dialect.Insert(table).
		Cols("username", "name", "salt", "verifier").
		Vals(goqu.Vals{client.UserName, client.Name, client.Salt, client.Verifier}).
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

func (r *SQLRepository) GetByUserName(ctx context.Context, userName string) (*models.Client, error) {
	query, args, err := r.dialect.From(table).
		Select("username", "name", "salt", "verifier").
		Where(goqu.C("username").Eq(userName)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	client := &models.Client{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&client.UserName, &client.Name, &client.Salt, &client.Verifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return client, nil
}
