// Package events carries circulation notifications out of the process after a
// borrow or return has been committed.
package events

import (
	"context"
	"time"
)

const (
	TypeBorrowed = "loan.borrowed"
	TypeReturned = "loan.returned"
)

// Event describes one committed circulation change. LoanQuantity and
// Available are the values after the change.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	UserName     string    `json:"username"`
	BookID       int64     `json:"book_id"`
	Quantity     int       `json:"quantity"`
	LoanQuantity int       `json:"loan_quantity"`
	Available    int       `json:"available"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
