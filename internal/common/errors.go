// Package common defines shared sentinel errors and small helpers used across
// the circulation tool. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Store-level errors.
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// Persistence errors.
	ErrConnectionLost      = errors.New("connection lost")
	ErrTransactionConflict = errors.New("transaction conflict")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidInput       = errors.New("invalid input")

	// Catalog errors.
	ErrBookNotFound = errors.New("book not found")

	// Circulation errors.
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoSuchLoan        = errors.New("no such loan")
	ErrOverReturn        = errors.New("returning more than borrowed")

	// Session state errors.
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

// InsufficientStockError is returned by Borrow when the request exceeds the
// number of copies currently on the shelf.
type InsufficientStockError struct {
	BookID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: book %d has %d available, %d requested",
		ErrInsufficientStock, e.BookID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OverReturnError is returned by Return when the client hands back more copies
// than the loan holds.
type OverReturnError struct {
	BookID    int64
	Requested int
	Existing  int
}

func (e *OverReturnError) Error() string {
	return fmt.Sprintf("%s: loan of book %d holds %d, %d returned",
		ErrOverReturn, e.BookID, e.Existing, e.Requested)
}

func (e *OverReturnError) Unwrap() error { return ErrOverReturn }

var recoverable = []error{
	ErrInvalidCredentials,
	ErrDuplicateUsername,
	ErrInvalidInput,
	ErrBookNotFound,
	ErrInvalidQuantity,
	ErrInsufficientStock,
	ErrNoSuchLoan,
	ErrOverReturn,
	ErrNotLoggedIn,
	ErrAlreadyLoggedIn,
}

// IsRecoverable reports whether err is a validation failure after which the
// session stays usable and no state has changed.
func IsRecoverable(err error) bool {
	for _, target := range recoverable {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
