package models

// Loan records how many copies of a book a client currently holds.
// Quantity is always positive; a fully returned loan has no row at all.
type Loan struct {
	UserName string
	BookID   int64
	Quantity int
}
