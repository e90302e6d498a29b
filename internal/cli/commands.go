package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/libcirc/internal/circulation"
	"github.com/dmitrijs2005/libcirc/internal/common"
)

// Indirections over the interactive helpers, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getNumber     = GetNumber
)

func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	userName, err := getSimpleText(a.reader, "Enter your username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.machine.Register(ctx, userName, string(password), name); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Registered - you can log in now")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter your username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.machine.Login(ctx, userName, string(password))
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", sess.Name)
	return nil
}

func (a *App) Borrow(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return a.report(common.ErrNotLoggedIn)
	}
	bookID, qty, err := a.bookAndQuantity(args, "How many copies do you need?")
	if err != nil {
		return err
	}
	r, err := a.machine.Borrow(ctx, bookID, qty)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Borrowed %d of %s - you now hold %d, %d left on the shelf\n",
		r.Quantity, bookLabel(r), r.LoanQuantity, r.Available)
	return nil
}

// Return asks for the book and the number of copies; entering 0 copies
// cancels.
func (a *App) Return(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return a.report(common.ErrNotLoggedIn)
	}
	bookID, qty, err := a.bookAndQuantity(args, "How many copies are you returning? (0 to cancel)")
	if err != nil {
		return err
	}
	if qty == 0 {
		return nil
	}
	r, err := a.machine.Return(ctx, bookID, qty)
	if err != nil {
		return a.report(err)
	}
	if r.LoanQuantity == 0 {
		fmt.Fprintf(a.out, "Returned %d of %s - loan closed\n", r.Quantity, bookLabel(r))
	} else {
		fmt.Fprintf(a.out, "Returned %d of %s - you still hold %d\n", r.Quantity, bookLabel(r), r.LoanQuantity)
	}
	return nil
}

func (a *App) Available(ctx context.Context, args []string) error {
	var bookID int64
	var err error
	if len(args) > 0 {
		bookID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(a.out, "%q is not a book id\n", args[0])
			return nil
		}
	} else if bookID, err = getNumber(a.reader, "Enter book id", a.out); err != nil {
		return err
	}

	book, stock, err := a.machine.Availability(ctx, bookID)
	if err != nil {
		return a.report(err)
	}
	title := book.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(a.out, "#%d %s: %d of %d available\n", book.ID, title, stock.Available(), stock.Total)
	return nil
}

func (a *App) Loans(ctx context.Context) error {
	loans, err := a.machine.Loans(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "You have no books on loan")
		return nil
	}
	for _, l := range loans {
		fmt.Fprintf(a.out, "book #%d: %d\n", l.BookID, l.Quantity)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.machine.Logout(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "See you soon")
	return nil
}

func (a *App) Exit(ctx context.Context) {
	a.machine.Exit(ctx)
}

// bookAndQuantity takes "<id> <qty>" from args, prompting for whatever is
// missing or malformed.
func (a *App) bookAndQuantity(args []string, qtyPrompt string) (int64, int, error) {
	var (
		bookID int64
		qty    int64
		err    error
	)
	if len(args) > 0 {
		bookID, err = strconv.ParseInt(args[0], 10, 64)
	}
	if len(args) == 0 || err != nil {
		if bookID, err = getNumber(a.reader, "Enter book id", a.out); err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		qty, err = strconv.ParseInt(args[1], 10, 32)
	}
	if len(args) <= 1 || err != nil {
		if qty, err = getNumber(a.reader, qtyPrompt, a.out); err != nil {
			return 0, 0, err
		}
	}
	return bookID, int(qty), nil
}

// report prints a user-facing line for err and returns it.
func (a *App) report(err error) error {
	fmt.Fprintln(a.out, describe(err))
	if !common.IsRecoverable(err) {
		a.logger.Warn(context.Background(), "command failed", "error", err)
	}
	return err
}

func describe(err error) string {
	var (
		ise *common.InsufficientStockError
		ore *common.OverReturnError
	)
	switch {
	case errors.As(err, &ise):
		return fmt.Sprintf("We only have %d copies of book #%d - try again", ise.Available, ise.BookID)
	case errors.As(err, &ore):
		return fmt.Sprintf("You're returning more than you hold (%d) - try again", ore.Existing)
	case errors.Is(err, common.ErrNoSuchLoan):
		return "There is no record of that loan - try again"
	case errors.Is(err, common.ErrBookNotFound):
		return "There is no book with that id - try again"
	case errors.Is(err, common.ErrInvalidQuantity):
		return "Quantity must be a positive number"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid username or password - try again"
	case errors.Is(err, common.ErrDuplicateUsername):
		return "That username is taken"
	case errors.Is(err, common.ErrInvalidInput):
		return "Username, password and name must not be empty"
	case errors.Is(err, common.ErrNotLoggedIn):
		return "Please log in first"
	case errors.Is(err, common.ErrAlreadyLoggedIn):
		return "You are already logged in; log out first"
	case errors.Is(err, common.ErrSessionExpired):
		return "Your session has expired - please log in again"
	case errors.Is(err, common.ErrConnectionLost):
		return "Lost connection to the library database - please log in again"
	case errors.Is(err, common.ErrTransactionConflict):
		return "The book is busy right now - try again"
	default:
		return "Error: " + err.Error()
	}
}

func bookLabel(r circulation.Receipt) string {
	if r.Title == "" {
		return fmt.Sprintf("book #%d", r.BookID)
	}
	return fmt.Sprintf("%q (#%d)", r.Title, r.BookID)
}
