package circulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/libcirc/internal/common"
)

type bookLock struct {
	sem  *semaphore.Weighted
	refs int
}

// bookLocks hands out one exclusive lock per book id. Entries are dropped
// once nobody holds or waits for them.
type bookLocks struct {
	mu    sync.Mutex
	locks map[int64]*bookLock
}

func newBookLocks() *bookLocks {
	return &bookLocks{locks: make(map[int64]*bookLock)}
}

// acquire blocks until the book's lock is held. It gives up when ctx is done
// or, if timeout is positive, after timeout with ErrTransactionConflict.
// The returned func releases the lock and may be called more than once.
func (l *bookLocks) acquire(ctx context.Context, bookID int64, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[bookID]
	if !ok {
		e = &bookLock{sem: semaphore.NewWeighted(1)}
		l.locks[bookID] = e
	}
	e.refs++
	l.mu.Unlock()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		l.drop(bookID, e)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: book %d is busy", common.ErrTransactionConflict, bookID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.drop(bookID, e)
		})
	}, nil
}

func (l *bookLocks) drop(bookID int64, e *bookLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, bookID)
	}
}

// size is the number of books with a live entry.
func (l *bookLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
