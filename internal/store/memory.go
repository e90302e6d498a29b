package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/models"
)

type loanKey struct {
	userName string
	bookID   int64
}

type memData struct {
	clients map[string]models.Client
	books   map[int64]models.Book
	loans   map[loanKey]int
}

func newMemData() *memData {
	return &memData{
		clients: make(map[string]models.Client),
		books:   make(map[int64]models.Book),
		loans:   make(map[loanKey]int),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		clients: make(map[string]models.Client, len(d.clients)),
		books:   make(map[int64]models.Book, len(d.books)),
		loans:   make(map[loanKey]int, len(d.loans)),
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.loans {
		c.loans[k] = v
	}
	return c
}

// memTx works directly on one memData; the caller provides isolation.
type memTx struct {
	d *memData
}

func (t memTx) FindClient(_ context.Context, userName string) (*models.Client, error) {
	c, ok := t.d.clients[userName]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (t memTx) InsertClient(_ context.Context, client *models.Client) error {
	if _, ok := t.d.clients[client.UserName]; ok {
		return common.ErrDuplicateKey
	}
	t.d.clients[client.UserName] = *client
	return nil
}

func (t memTx) GetBook(_ context.Context, id int64) (*models.Book, error) {
	b, ok := t.d.books[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &b, nil
}

func (t memTx) LockBook(ctx context.Context, id int64) (*models.Book, error) {
	return t.GetBook(ctx, id)
}

func (t memTx) InsertBook(_ context.Context, book *models.Book) error {
	if _, ok := t.d.books[book.ID]; ok {
		return common.ErrDuplicateKey
	}
	t.d.books[book.ID] = *book
	return nil
}

func (t memTx) SumLoanedQuantity(_ context.Context, bookID int64) (int, error) {
	sum := 0
	for k, q := range t.d.loans {
		if k.bookID == bookID {
			sum += q
		}
	}
	return sum, nil
}

func (t memTx) GetLoan(_ context.Context, userName string, bookID int64) (*models.Loan, error) {
	q, ok := t.d.loans[loanKey{userName, bookID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &models.Loan{UserName: userName, BookID: bookID, Quantity: q}, nil
}

func (t memTx) ListLoans(_ context.Context, userName string) ([]models.Loan, error) {
	result := make([]models.Loan, 0)
	for k, q := range t.d.loans {
		if k.userName == userName {
			result = append(result, models.Loan{UserName: userName, BookID: k.bookID, Quantity: q})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookID < result[j].BookID })
	return result, nil
}

func (t memTx) UpsertLoan(_ context.Context, userName string, bookID int64, quantity int) error {
	t.d.loans[loanKey{userName, bookID}] = quantity
	return nil
}

func (t memTx) DeleteLoan(_ context.Context, userName string, bookID int64) error {
	delete(t.d.loans, loanKey{userName, bookID})
	return nil
}

// MemoryStore keeps everything in process memory. Transactions run one at a
// time against a private copy that replaces the live data on success.
// After Close every call fails with ErrConnectionLost.
type MemoryStore struct {
	mu     sync.Mutex
	data   *memData
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return common.ErrConnectionLost
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.data.clone()
	if err := fn(ctx, memTx{d: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// do runs a single operation outside any transaction.
func (s *MemoryStore) do(fn func(tx memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrConnectionLost
	}
	return fn(memTx{d: s.data})
}

func (s *MemoryStore) FindClient(ctx context.Context, userName string) (c *models.Client, err error) {
	err = s.do(func(tx memTx) error { c, err = tx.FindClient(ctx, userName); return err })
	return c, err
}

func (s *MemoryStore) InsertClient(ctx context.Context, client *models.Client) error {
	return s.do(func(tx memTx) error { return tx.InsertClient(ctx, client) })
}

func (s *MemoryStore) GetBook(ctx context.Context, id int64) (b *models.Book, err error) {
	err = s.do(func(tx memTx) error { b, err = tx.GetBook(ctx, id); return err })
	return b, err
}

func (s *MemoryStore) LockBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.GetBook(ctx, id)
}

func (s *MemoryStore) InsertBook(ctx context.Context, book *models.Book) error {
	return s.do(func(tx memTx) error { return tx.InsertBook(ctx, book) })
}

func (s *MemoryStore) SumLoanedQuantity(ctx context.Context, bookID int64) (n int, err error) {
	err = s.do(func(tx memTx) error { n, err = tx.SumLoanedQuantity(ctx, bookID); return err })
	return n, err
}

func (s *MemoryStore) GetLoan(ctx context.Context, userName string, bookID int64) (l *models.Loan, err error) {
	err = s.do(func(tx memTx) error { l, err = tx.GetLoan(ctx, userName, bookID); return err })
	return l, err
}

func (s *MemoryStore) ListLoans(ctx context.Context, userName string) (l []models.Loan, err error) {
	err = s.do(func(tx memTx) error { l, err = tx.ListLoans(ctx, userName); return err })
	return l, err
}

func (s *MemoryStore) UpsertLoan(ctx context.Context, userName string, bookID int64, quantity int) error {
	return s.do(func(tx memTx) error { return tx.UpsertLoan(ctx, userName, bookID, quantity) })
}

func (s *MemoryStore) DeleteLoan(ctx context.Context, userName string, bookID int64) error {
	return s.do(func(tx memTx) error { return tx.DeleteLoan(ctx, userName, bookID) })
}
