package models

// Book is a catalog entry. TotalCount is the physical stock; circulation
// never changes it, loans move against it.
type Book struct {
	ID         int64
	Title      string
	TotalCount int
}

// Stock is a point-in-time availability view of a book.
type Stock struct {
	BookID   int64
	Total    int
	Borrowed int
}

// Available is Total minus Borrowed.
func (s Stock) Available() int {
	return s.Total - s.Borrowed
}
