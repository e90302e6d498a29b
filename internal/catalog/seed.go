package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

type seedFile struct {
	Books []seedBook `yaml:"books"`
}

type seedBook struct {
	ID    int64  `yaml:"id"`
	Title string `yaml:"title"`
	Total int    `yaml:"total"`
}

// LoadSeedFile reads a catalog file of the form
//
//	books:
//	  - id: 1
//	    title: Dune
//	    total: 5
func LoadSeedFile(path string) ([]models.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]models.Book, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	books := make([]models.Book, 0, len(f.Books))
	seen := make(map[int64]bool, len(f.Books))
	for i, b := range f.Books {
		if b.ID <= 0 {
			return nil, fmt.Errorf("seed entry %d: id must be positive", i)
		}
		if b.Total < 0 {
			return nil, fmt.Errorf("seed entry %d: total must not be negative", i)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("seed entry %d: book %d listed twice", i, b.ID)
		}
		seen[b.ID] = true
		books = append(books, models.Book{ID: b.ID, Title: b.Title, TotalCount: b.Total})
	}
	return books, nil
}

// Seed inserts the books that are not in the store yet and returns how many
// were added. Existing books are left untouched.
func Seed(ctx context.Context, s store.Store, books []models.Book) (int, error) {
	added := 0
	for _, b := range books {
		err := s.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.GetBook(ctx, b.ID); err == nil {
				return common.ErrDuplicateKey
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}
			return tx.InsertBook(ctx, &b)
		})
		switch {
		case err == nil:
			added++
		case errors.Is(err, common.ErrDuplicateKey):
		default:
			return added, fmt.Errorf("seed book %d: %w", b.ID, err)
		}
	}
	return added, nil
}
