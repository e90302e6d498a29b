// Package circulation implements borrowing and returning books.
//
// Every Borrow or Return is one atomic transaction that reads the book's
// stock and the caller's loan, validates the request and writes the new
// loan quantity. Calls on the same book are serialized so that no two of
// them can act on the same stale availability; calls on different books
// run in parallel. A rejected call changes nothing.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/libcirc/internal/catalog"
	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/events"
	"github.com/dmitrijs2005/libcirc/internal/ledger"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

const defaultRetryBaseDelay = 10 * time.Millisecond

type Options struct {
	// LockTimeout bounds the wait for a book's lock. Zero waits as long as
	// the context allows.
	LockTimeout time.Duration
	// RetryAttempts is how many times a conflicting transaction is rerun
	// after the first try.
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Receipt describes the outcome of a committed Borrow or Return.
type Receipt struct {
	BookID int64
	Title  string
	// Quantity is the number of copies moved by the call.
	Quantity int
	// LoanQuantity is what the caller holds afterwards; zero when the loan
	// was closed.
	LoanQuantity int
	Total        int
	Available    int
}

type Engine struct {
	store     store.Store
	locks     *bookLocks
	publisher events.Publisher
	logger    logging.Logger
	opts      Options
	now       func() time.Time
}

func NewEngine(s store.Store, publisher events.Publisher, logger logging.Logger, opts Options) *Engine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}
	return &Engine{
		store:     s,
		locks:     newBookLocks(),
		publisher: publisher,
		logger:    logger.With("component", "circulation"),
		opts:      opts,
		now:       time.Now,
	}
}

// Borrow lends qty copies of the book to the session's client.
func (e *Engine) Borrow(ctx context.Context, sess *models.Session, bookID int64, qty int) (Receipt, error) {
	return e.run(ctx, "borrow", sess, bookID, qty, func(ctx context.Context, tx store.Tx, user string) (Receipt, error) {
		book, err := catalog.New(tx).Lock(ctx, bookID)
		if err != nil {
			return Receipt{}, err
		}

		led := ledger.New(tx)
		borrowed, err := led.Outstanding(ctx, bookID)
		if err != nil {
			return Receipt{}, err
		}
		existing := 0
		loan, err := led.GetLoan(ctx, user, bookID)
		if err != nil {
			return Receipt{}, err
		}
		if loan != nil {
			existing = loan.Quantity
		}

		available := book.TotalCount - borrowed
		if qty > available {
			return Receipt{}, &common.InsufficientStockError{BookID: bookID, Requested: qty, Available: max(available, 0)}
		}

		if err := led.UpsertLoan(ctx, user, bookID, existing+qty); err != nil {
			return Receipt{}, err
		}
		return Receipt{
			BookID:       bookID,
			Title:        book.Title,
			Quantity:     qty,
			LoanQuantity: existing + qty,
			Total:        book.TotalCount,
			Available:    available - qty,
		}, nil
	})
}

// Return takes qty copies of the book back from the session's client.
func (e *Engine) Return(ctx context.Context, sess *models.Session, bookID int64, qty int) (Receipt, error) {
	return e.run(ctx, "return", sess, bookID, qty, func(ctx context.Context, tx store.Tx, user string) (Receipt, error) {
		book, err := catalog.New(tx).Lock(ctx, bookID)
		if errors.Is(err, common.ErrBookNotFound) {
			return Receipt{}, fmt.Errorf("%w: book %d", common.ErrNoSuchLoan, bookID)
		}
		if err != nil {
			return Receipt{}, err
		}

		led := ledger.New(tx)
		loan, err := led.GetLoan(ctx, user, bookID)
		if err != nil {
			return Receipt{}, err
		}
		if loan == nil {
			return Receipt{}, fmt.Errorf("%w: book %d", common.ErrNoSuchLoan, bookID)
		}

		var remaining int
		switch {
		case qty < loan.Quantity:
			remaining = loan.Quantity - qty
		case qty == loan.Quantity:
			remaining = 0
		default:
			return Receipt{}, &common.OverReturnError{BookID: bookID, Requested: qty, Existing: loan.Quantity}
		}

		borrowed, err := led.Outstanding(ctx, bookID)
		if err != nil {
			return Receipt{}, err
		}
		if err := led.UpsertLoan(ctx, user, bookID, remaining); err != nil {
			return Receipt{}, err
		}
		return Receipt{
			BookID:       bookID,
			Title:        book.Title,
			Quantity:     qty,
			LoanQuantity: remaining,
			Total:        book.TotalCount,
			Available:    book.TotalCount - (borrowed - qty),
		}, nil
	})
}

// Availability reports the book and its current stock.
func (e *Engine) Availability(ctx context.Context, bookID int64) (*models.Book, models.Stock, error) {
	c := catalog.New(e.store)
	book, err := c.Book(ctx, bookID)
	if err != nil {
		return nil, models.Stock{}, err
	}
	stock, err := c.Stock(ctx, bookID)
	if err != nil {
		return nil, models.Stock{}, err
	}
	return book, stock, nil
}

// Loans lists what the session's client currently holds.
func (e *Engine) Loans(ctx context.Context, sess *models.Session) ([]models.Loan, error) {
	if sess == nil {
		return nil, common.ErrNotLoggedIn
	}
	return ledger.New(e.store).Loans(ctx, sess.UserName)
}

type applyFunc func(ctx context.Context, tx store.Tx, user string) (Receipt, error)

func (e *Engine) run(ctx context.Context, op string, sess *models.Session, bookID int64, qty int, apply applyFunc) (Receipt, error) {
	if sess == nil {
		return Receipt{}, common.ErrNotLoggedIn
	}
	log := e.logger.With("op", op, "user", sess.UserName, "book", bookID, "qty", qty)

	log.Debug(ctx, "validating")
	if qty <= 0 {
		err := fmt.Errorf("%w: got %d", common.ErrInvalidQuantity, qty)
		log.Debug(ctx, "rejected", "error", err)
		return Receipt{}, err
	}

	var receipt Receipt
	attempt := 0
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			log.Warn(ctx, "retrying after conflict", "attempt", attempt)
		}
		return retryable(e.applyLocked(ctx, log, bookID, func(ctx context.Context, tx store.Tx) error {
			r, err := apply(ctx, tx, sess.UserName)
			if err != nil {
				return err
			}
			receipt = r
			return nil
		}))
	})
	if err != nil {
		if common.IsRecoverable(err) {
			log.Debug(ctx, "rejected", "error", err)
		} else {
			log.Error(ctx, "failed", "error", err)
		}
		return Receipt{}, fmt.Errorf("%s book %d: %w", op, bookID, err)
	}

	log.Info(ctx, "committed", "loan", receipt.LoanQuantity, "available", receipt.Available)
	e.publish(ctx, log, op, sess.UserName, receipt)
	return receipt, nil
}

func (e *Engine) applyLocked(ctx context.Context, log logging.Logger, bookID int64, fn func(ctx context.Context, tx store.Tx) error) error {
	unlock, err := e.locks.acquire(ctx, bookID, e.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	log.Debug(ctx, "applying")
	return e.store.WithTransaction(ctx, fn)
}

func (e *Engine) backoff() retry.Backoff {
	b := retry.NewExponential(e.opts.RetryBaseDelay)
	b = retry.WithJitterPercent(30, b)
	return retry.WithMaxRetries(uint64(e.opts.RetryAttempts), b)
}

func retryable(err error) error {
	if errors.Is(err, common.ErrTransactionConflict) {
		return retry.RetryableError(err)
	}
	return err
}

func (e *Engine) publish(ctx context.Context, log logging.Logger, op, user string, r Receipt) {
	typ := events.TypeBorrowed
	if op == "return" {
		typ = events.TypeReturned
	}
	ev := events.Event{
		ID:           uuid.NewString(),
		Type:         typ,
		UserName:     user,
		BookID:       r.BookID,
		Quantity:     r.Quantity,
		LoanQuantity: r.LoanQuantity,
		Available:    r.Available,
		OccurredAt:   e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Warn(ctx, "event not published", "event", ev.Type, "error", err)
	}
}
